package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressAnswer is one saved answer coordinate. SelectedOption is set for
// choice questions, TextAnswer for fill-blank and descriptive ones.
// OriginalQuestionIndex preserves the author ordering when the client
// shuffles questions.
type ProgressAnswer struct {
	SectionIndex          int     `json:"section_index"`
	QuestionIndex         int     `json:"question_index"`
	OriginalQuestionIndex *int    `json:"original_question_index,omitempty"`
	SelectedOption        *int    `json:"selected_option,omitempty"`
	TextAnswer            *string `json:"text_answer,omitempty"`
}

type CodingAnswer struct {
	SectionIndex        int            `json:"section_index"`
	CodingQuestionIndex int            `json:"coding_question_index"`
	SourceCode          string         `json:"source_code"`
	Language            CodingLanguage `json:"language"`
}

// TestProgress is the single in-flight snapshot per (test, student). Every
// save fully replaces answers, cursor and elapsed time (last-write-wins).
// Once IsCompleted is set the row is invisible to the read path; it is kept
// so a reset can be distinguished from "never started".
type TestProgress struct {
	ID uint `json:"id" gorm:"primaryKey"`

	TestID       uint   `json:"test_id" gorm:"not null;uniqueIndex:idx_progress_identity"`
	StudentEmail string `json:"student_email" gorm:"not null;size:255;uniqueIndex:idx_progress_identity"`
	StudentName  string `json:"student_name" gorm:"size:100"`
	RollNumber   string `json:"roll_number" gorm:"size:50"`

	CurrentSection  int `json:"current_section"`
	CurrentQuestion int `json:"current_question"`

	Answers       datatypes.JSONSlice[ProgressAnswer] `json:"answers" gorm:"type:jsonb"`
	CodingAnswers datatypes.JSONSlice[CodingAnswer]   `json:"coding_answers" gorm:"type:jsonb"`

	TimeSpent    int  `json:"time_spent"` // seconds
	WarningCount int  `json:"warning_count"`
	IsCompleted  bool `json:"is_completed" gorm:"default:false;index"`

	StartedAt time.Time `json:"started_at"`
	LastSaved time.Time `json:"last_saved"`

	Test Test `json:"-" gorm:"foreignKey:TestID"`
}

func (TestProgress) TableName() string {
	return "test_progress"
}

type ProctoringEventType string

const (
	EventTabSwitch      ProctoringEventType = "tab_switch"
	EventWindowBlur     ProctoringEventType = "window_blur"
	EventFullscreenExit ProctoringEventType = "fullscreen_exit"
	EventMultipleFaces  ProctoringEventType = "multiple_faces"
	EventNoFace         ProctoringEventType = "no_face"
	EventPhoneDetected  ProctoringEventType = "phone_detected"
	EventBookDetected   ProctoringEventType = "book_detected"
)

// ProctoringEvent is a warning signal captured in the browser during an
// attempt. The capture pipeline is an external collaborator; this service
// only records the events and counts them against Test.MaxWarnings.
type ProctoringEvent struct {
	ID         uint                `json:"id" gorm:"primaryKey"`
	ProgressID uint                `json:"progress_id" gorm:"not null;index"`
	Type       ProctoringEventType `json:"type" gorm:"not null;index"`
	Detail     *string             `json:"detail,omitempty" gorm:"type:text"`
	TimeOffset int                 `json:"time_offset"` // seconds from attempt start
	CreatedAt  time.Time           `json:"created_at"`

	Progress TestProgress `json:"-" gorm:"foreignKey:ProgressID"`
}

func (ProctoringEvent) TableName() string {
	return "proctoring_events"
}
