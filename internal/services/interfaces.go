package services

import (
	"context"
	"time"

	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/scoring"
)

// ServiceManager aggregates the domain services so handlers depend on one
// seam, mirroring repositories.Repository.
type ServiceManager interface {
	Test() TestService
	Progress() ProgressService
	Result() ResultService
	Runner() RunnerService
	User() UserService
}

// ===== TEST SERVICE =====

type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error)
	Delete(ctx context.Context, id uint, userID string) error
	GetByID(ctx context.Context, id uint, userID string) (*models.Test, error)
	List(ctx context.Context, userID string, filters repositories.TestFilters) ([]*models.Test, int64, error)

	// GetForStudent resolves a share token into the redacted student view.
	// Answer keys never leave the service through this path.
	GetForStudent(ctx context.Context, shareToken string) (*StudentTestView, error)

	Share(ctx context.Context, id uint, userID string) (string, error)
	Unshare(ctx context.Context, id uint, userID string) error
}

type CreateTestRequest struct {
	Title     string           `json:"title" validate:"required,min=1,max=200"`
	Duration  int              `json:"duration" validate:"required,min=1,max=600"`
	TimerMode models.TimerMode `json:"timer_mode" validate:"omitempty,oneof=global per_question"`

	Sections []models.Section `json:"sections" validate:"required,min=1,dive"`

	ResumeEnabled *bool `json:"resume_enabled,omitempty"`
	MaxWarnings   *int  `json:"max_warnings,omitempty" validate:"omitempty,min=1,max=20"`
	ShowScore     *bool `json:"show_score,omitempty"`

	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

type UpdateTestRequest struct {
	Title     *string           `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Duration  *int              `json:"duration,omitempty" validate:"omitempty,min=1,max=600"`
	TimerMode *models.TimerMode `json:"timer_mode,omitempty" validate:"omitempty,oneof=global per_question"`

	Sections *[]models.Section `json:"sections,omitempty" validate:"omitempty,min=1,dive"`

	ResumeEnabled *bool `json:"resume_enabled,omitempty"`
	MaxWarnings   *int  `json:"max_warnings,omitempty" validate:"omitempty,min=1,max=20"`
	ShowScore     *bool `json:"show_score,omitempty"`

	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

// StudentTestView is the test definition as the exam client sees it: full
// structure and question text, no answer keys.
type StudentTestView struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Duration      int              `json:"duration"`
	TimerMode     models.TimerMode `json:"timer_mode"`
	Sections      []models.Section `json:"sections"`
	ResumeEnabled bool             `json:"resume_enabled"`
	MaxWarnings   int              `json:"max_warnings"`
	QuestionCount int              `json:"question_count"`
	TotalMarks    float64          `json:"total_marks"`
}

// ===== PROGRESS SERVICE =====

type ProgressService interface {
	// Save replaces the full snapshot for (test, student). Last write wins.
	Save(ctx context.Context, req *SaveProgressRequest) (*models.TestProgress, error)

	// Get returns the resumable snapshot, or ErrProgressNotFound when there
	// is none or the attempt was already completed.
	Get(ctx context.Context, testID uint, studentEmail string) (*models.TestProgress, error)

	// Complete closes the snapshot without a submission, e.g. when the
	// client abandons the attempt. ErrProgressNotFound when no snapshot
	// exists. Submission closes the snapshot itself; this is the explicit
	// path.
	Complete(ctx context.Context, testID uint, studentEmail string) error

	// Reset wipes a student's saved progress so they can restart. Admin only.
	Reset(ctx context.Context, testID uint, studentEmail string, adminID string) error

	// RecordWarning appends a proctoring event and bumps the warning count.
	RecordWarning(ctx context.Context, req *ProctoringEventRequest) (*WarningStatus, error)
}

type SaveProgressRequest struct {
	TestID       uint   `json:"test_id" validate:"required"`
	StudentEmail string `json:"student_email" validate:"required,email"`
	StudentName  string `json:"student_name" validate:"required,min=1,max=100"`
	RollNumber   string `json:"roll_number" validate:"omitempty,max=50"`

	CurrentSection  int `json:"current_section" validate:"min=0"`
	CurrentQuestion int `json:"current_question" validate:"min=0"`

	Answers       []models.ProgressAnswer `json:"answers"`
	CodingAnswers []models.CodingAnswer   `json:"coding_answers,omitempty"`

	TimeSpent int `json:"time_spent" validate:"min=0"`
}

type ProctoringEventRequest struct {
	TestID       uint                       `json:"test_id" validate:"required"`
	StudentEmail string                     `json:"student_email" validate:"required,email"`
	Type         models.ProctoringEventType `json:"type" validate:"required"`
	Detail       *string                    `json:"detail,omitempty"`
	TimeOffset   int                        `json:"time_offset" validate:"min=0"`
}

// WarningStatus tells the client how close the attempt is to forced submit.
type WarningStatus struct {
	WarningCount     int  `json:"warning_count"`
	MaxWarnings      int  `json:"max_warnings"`
	ThresholdReached bool `json:"threshold_reached"`
}

// ===== RESULT SERVICE =====

type ResultService interface {
	// Submit runs the objective scoring pass and appends the result. A second
	// submit for the same (test, student) fails with SubmissionConflictError.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmissionReceipt, error)

	// Status reports whether a student has already submitted, without
	// exposing scores.
	Status(ctx context.Context, testID uint, studentEmail string) (*SubmissionStatus, error)

	GetByID(ctx context.Context, resultID uint, adminID string) (*models.Result, error)
	GetByTest(ctx context.Context, testID uint, adminID string, filters repositories.ResultFilters) ([]*models.Result, int64, error)
	Stats(ctx context.Context, testID uint, adminID string) (*repositories.ResultStats, error)

	// EvaluateDescriptive and EvaluateCoding record a manual grade for one
	// answer and recompute the aggregate score.
	EvaluateDescriptive(ctx context.Context, req *EvaluateRequest, adminID string) (*GradeReceipt, error)
	EvaluateCoding(ctx context.Context, req *EvaluateRequest, adminID string) (*GradeReceipt, error)

	// ExportByTest renders every result for a test into an XLSX workbook.
	ExportByTest(ctx context.Context, testID uint, adminID string) ([]byte, error)
}

type SubmitRequest struct {
	TestID       uint   `json:"test_id" validate:"required"`
	StudentEmail string `json:"student_email" validate:"required,email"`
	StudentName  string `json:"student_name" validate:"required,min=1,max=100"`
	RollNumber   string `json:"roll_number" validate:"omitempty,max=50"`

	Answers       []scoring.SubmittedAnswer `json:"answers"`
	CodingAnswers []scoring.SubmittedCode   `json:"coding_answers,omitempty" validate:"omitempty,dive"`

	TimeSpent int  `json:"time_spent" validate:"min=0"`
	IsResumed bool `json:"is_resumed"`
}

// SubmissionReceipt is what the student sees after submitting. Score fields
// are withheld when the test hides scores.
type SubmissionReceipt struct {
	ResultID    uint      `json:"result_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	ShowScore   bool      `json:"show_score"`

	Score      *float64 `json:"score,omitempty"`
	TotalMarks *float64 `json:"total_marks,omitempty"`

	// PendingManualGrading is set when descriptive or coding answers await
	// an admin, so the displayed score is partial.
	PendingManualGrading bool `json:"pending_manual_grading"`
}

// SubmissionSummary is the redacted view of an existing submission, returned
// from conflict responses and status checks. Score fields are withheld when
// the test hides scores.
type SubmissionSummary struct {
	ResultID     uint      `json:"result_id"`
	TestID       uint      `json:"test_id"`
	StudentEmail string    `json:"student_email"`
	SubmittedAt  time.Time `json:"submitted_at"`

	Score      *float64 `json:"score,omitempty"`
	TotalMarks *float64 `json:"total_marks,omitempty"`
}

type SubmissionStatus struct {
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	Score      *float64 `json:"score,omitempty"`
	TotalMarks *float64 `json:"total_marks,omitempty"`
}

type EvaluateRequest struct {
	ResultID      uint    `json:"result_id" validate:"required"`
	SectionIndex  int     `json:"section_index" validate:"min=0"`
	QuestionIndex int     `json:"question_index" validate:"min=0"`
	Score         float64 `json:"score"`
	Feedback      *string `json:"feedback,omitempty" validate:"omitempty,max=2000"`
}

// GradeReceipt reports the aggregate after one manual grade is recorded.
type GradeReceipt struct {
	ResultID    uint    `json:"result_id"`
	Score       float64 `json:"score"`
	TotalMarks  float64 `json:"total_marks"`
	FullyGraded bool    `json:"fully_graded"`
}

// ===== USER SERVICE =====

type UserService interface {
	// SyncIdentity mirrors a token-verified admin into local storage and
	// stamps the login time. Called on every authenticated request so
	// ownership lookups and audit trails have a local row to join against.
	SyncIdentity(ctx context.Context, userID, email, fullName string) (*models.User, error)

	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// ===== RUNNER SERVICE =====

type RunnerService interface {
	// Run executes student code against the judge for in-attempt feedback.
	Run(ctx context.Context, req *RunCodeRequest) (*RunCodeResponse, error)
}

type RunCodeRequest struct {
	SourceCode string                `json:"source_code" validate:"required"`
	Language   models.CodingLanguage `json:"language" validate:"required,coding_language"`
	Stdin      string                `json:"stdin,omitempty"`
}

type RunCodeResponse struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	Status        string  `json:"status"`
	ExecutionTime float64 `json:"execution_time"`
}
