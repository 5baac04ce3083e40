package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TimerMode string

const (
	TimerGlobal      TimerMode = "global"
	TimerPerQuestion TimerMode = "per_question"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionFillBlank   QuestionType = "fill_blank"
	QuestionImageBased  QuestionType = "image_based"
	QuestionDescriptive QuestionType = "descriptive"
)

// IsObjective reports whether the type is scored by comparing submitted data
// against a stored key. Descriptive and coding answers require manual grading.
func (t QuestionType) IsObjective() bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionFillBlank, QuestionImageBased:
		return true
	}
	return false
}

// IsChoice reports whether the answer key is an option index.
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionImageBased:
		return true
	}
	return false
}

type CodingLanguage string

const (
	LangPython     CodingLanguage = "python"
	LangJavaScript CodingLanguage = "javascript"
	LangJava       CodingLanguage = "java"
	LangC          CodingLanguage = "c"
	LangCPP        CodingLanguage = "cpp"
	LangGo         CodingLanguage = "go"
)

// Question carries a tagged answer-key union: CorrectOption for choice types
// (mcq, true_false, image_based), CorrectText/AcceptableAnswers for
// fill_blank, ModelAnswer for descriptive. Which fields are meaningful is
// decided by Type; the scoring engine switches exhaustively on it.
type Question struct {
	Type    QuestionType `json:"type" validate:"required,question_type"`
	Text    string       `json:"text" validate:"required"`
	Options []string     `json:"options,omitempty"`

	CorrectOption     *int     `json:"correct_option,omitempty"`
	CorrectText       *string  `json:"correct_text,omitempty"`
	AcceptableAnswers []string `json:"acceptable_answers,omitempty"`
	CaseSensitive     bool     `json:"case_sensitive,omitempty"`

	ModelAnswer *string `json:"model_answer,omitempty"`
	WordLimit   *int    `json:"word_limit,omitempty"`

	ImageURL *string `json:"image_url,omitempty"`

	Points float64 `json:"points" validate:"omitempty,min=1"`
}

// PointsOrDefault returns the question's points, defaulting to 1.
func (q Question) PointsOrDefault() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

type TestCase struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Weight         float64 `json:"weight" validate:"omitempty,min=1"`
}

// WeightOrDefault returns the test case weight, defaulting to 1.
func (tc TestCase) WeightOrDefault() float64 {
	if tc.Weight <= 0 {
		return 1
	}
	return tc.Weight
}

type CodingQuestion struct {
	Title            string           `json:"title" validate:"required"`
	Description      string           `json:"description"`
	StarterCode      string           `json:"starter_code"`
	Language         CodingLanguage   `json:"language" validate:"required,coding_language"`
	AllowedLanguages []CodingLanguage `json:"allowed_languages" validate:"required,min=1,dive,coding_language"`
	TestCases        []TestCase       `json:"test_cases"`
}

type Section struct {
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	TimeLimit       *int             `json:"time_limit,omitempty"` // minutes
	Questions       []Question       `json:"questions"`
	CodingQuestions []CodingQuestion `json:"coding_questions,omitempty"`
}

// Test is the immutable (per attempt) definition students are scored against.
// Older tests carry a flat Questions list instead of Sections; scoring
// normalizes both shapes into sections before grading.
type Test struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Duration  int       `json:"duration" gorm:"not null" validate:"required,min=1,max=600"` // minutes
	TimerMode TimerMode `json:"timer_mode" gorm:"default:global" validate:"omitempty,oneof=global per_question"`

	Sections  datatypes.JSONSlice[Section]  `json:"sections" gorm:"type:jsonb"`
	Questions datatypes.JSONSlice[Question] `json:"questions,omitempty" gorm:"type:jsonb"` // legacy flat shape

	IsPublic      bool    `json:"is_public" gorm:"default:false"`
	ShareToken    *string `json:"share_token,omitempty" gorm:"uniqueIndex;size:64"`
	ResumeEnabled bool    `json:"resume_enabled" gorm:"default:true"`
	MaxWarnings   int     `json:"max_warnings" gorm:"default:3"`
	ShowScore     bool    `json:"show_score" gorm:"default:true"`

	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Computed fields (not stored)
	QuestionCount int     `json:"question_count" gorm:"-"`
	TotalMarks    float64 `json:"total_marks" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

// AvailableAt reports whether the test can be taken at the given instant.
func (t *Test) AvailableAt(now time.Time) bool {
	if t.StartAt != nil && now.Before(*t.StartAt) {
		return false
	}
	if t.EndAt != nil && now.After(*t.EndAt) {
		return false
	}
	return true
}
