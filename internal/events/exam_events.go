package events

import (
	"time"
)

// EventType represents the domain events this service emits
type EventType string

const (
	// Submission events
	EventExamSubmitted EventType = "exam.submitted"
	EventExamGraded    EventType = "exam.graded"

	// Progress events
	EventProgressReset    EventType = "exam.progress_reset"
	EventWarningThreshold EventType = "exam.warning_threshold"
)

// ExamEvent is the envelope for every published event
type ExamEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ExamSubmittedEvent fires once per accepted submission. Consumers use it
// for notification mails and downstream analytics; it is never a source of
// truth for scores.
type ExamSubmittedEvent struct {
	TestID       uint      `json:"test_id"`
	TestTitle    string    `json:"test_title"`
	ResultID     uint      `json:"result_id"`
	StudentEmail string    `json:"student_email"`
	StudentName  string    `json:"student_name"`
	Score        float64   `json:"score"`
	TotalMarks   float64   `json:"total_marks"`
	IsResumed    bool      `json:"is_resumed"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ExamGradedEvent fires when the last manually-graded answer of a result
// receives its score.
type ExamGradedEvent struct {
	TestID       uint    `json:"test_id"`
	ResultID     uint    `json:"result_id"`
	StudentEmail string  `json:"student_email"`
	Score        float64 `json:"score"`
	TotalMarks   float64 `json:"total_marks"`
	GradedBy     string  `json:"graded_by"`
}

// WarningThresholdEvent fires when proctoring warnings reach the test's
// configured maximum. The client reacts by auto-submitting.
type WarningThresholdEvent struct {
	TestID       uint   `json:"test_id"`
	StudentEmail string `json:"student_email"`
	WarningCount int    `json:"warning_count"`
	MaxWarnings  int    `json:"max_warnings"`
}
