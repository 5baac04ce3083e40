package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResultAnswer is a scored objective answer on a Result. PointsAwarded and
// IsCorrect are fixed by the scoring pass at submission time.
type ResultAnswer struct {
	SectionIndex   int     `json:"section_index"`
	QuestionIndex  int     `json:"question_index"`
	SelectedOption *int    `json:"selected_option,omitempty"`
	TextAnswer     *string `json:"text_answer,omitempty"`
	IsCorrect      *bool   `json:"is_correct,omitempty"`
	PointsAwarded  float64 `json:"points_awarded"`
}

// DescriptiveResultAnswer holds the submitted text and, once an admin grades
// it, the awarded score and feedback. Score stays nil until graded and the
// question contributes 0 to the aggregate.
type DescriptiveResultAnswer struct {
	SectionIndex  int      `json:"section_index"`
	QuestionIndex int      `json:"question_index"`
	TextAnswer    string   `json:"text_answer"`
	MaxPoints     float64  `json:"max_points"`
	Score         *float64 `json:"score,omitempty"`
	Feedback      *string  `json:"feedback,omitempty"`
}

// CodingResultAnswer mirrors DescriptiveResultAnswer for coding questions.
// Submitted code is never auto-graded, even when the student ran it against
// the judge during the attempt.
type CodingResultAnswer struct {
	SectionIndex        int            `json:"section_index"`
	CodingQuestionIndex int            `json:"coding_question_index"`
	SourceCode          string         `json:"source_code"`
	Language            CodingLanguage `json:"language"`
	MaxPoints           float64        `json:"max_points"`
	Score               *float64       `json:"score,omitempty"`
	Feedback            *string        `json:"feedback,omitempty"`
}

// Result is the append-once submission record, unique per (test, student).
// TotalMarks is frozen at submission and never recomputed from a later
// edited test definition. Score is the running aggregate: objective points
// plus whatever manual grades have been recorded so far.
type Result struct {
	ID uint `json:"id" gorm:"primaryKey"`

	TestID       uint   `json:"test_id" gorm:"not null;uniqueIndex:idx_result_identity"`
	StudentEmail string `json:"student_email" gorm:"not null;size:255;uniqueIndex:idx_result_identity"`
	StudentName  string `json:"student_name" gorm:"not null;size:100"`
	RollNumber   string `json:"roll_number" gorm:"size:50"`

	Answers            datatypes.JSONSlice[ResultAnswer]            `json:"answers" gorm:"type:jsonb"`
	DescriptiveAnswers datatypes.JSONSlice[DescriptiveResultAnswer] `json:"descriptive_answers" gorm:"type:jsonb"`
	CodingAnswers      datatypes.JSONSlice[CodingResultAnswer]      `json:"coding_answers" gorm:"type:jsonb"`

	Score      float64 `json:"score"`
	TotalMarks float64 `json:"total_marks"`

	TimeSpent int  `json:"time_spent"` // seconds
	IsResumed bool `json:"is_resumed"`

	CreatedAt time.Time `json:"created_at"`

	Test Test `json:"-" gorm:"foreignKey:TestID"`
}

func (Result) TableName() string {
	return "results"
}
