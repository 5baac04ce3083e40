package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/testforge/exam-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories so services depend on a
// single seam that a test fake can implement in-memory.
type Repository interface {
	Test() TestRepository
	Progress() ProgressRepository
	Result() ResultRepository
	User() UserRepository
}

type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByShareToken(ctx context.Context, token string) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error
	GetByCreator(ctx context.Context, creatorID string, filters TestFilters) ([]*models.Test, int64, error)
}

type ProgressRepository interface {
	// Upsert fully replaces the snapshot for (test_id, student_email),
	// creating the row when absent. Last write wins.
	Upsert(ctx context.Context, progress *models.TestProgress) error
	GetByTestAndStudent(ctx context.Context, testID uint, studentEmail string) (*models.TestProgress, error)
	MarkCompleted(ctx context.Context, testID uint, studentEmail string, at time.Time) error
	Delete(ctx context.Context, testID uint, studentEmail string) error
	GetByTest(ctx context.Context, testID uint) ([]*models.TestProgress, error)
	AddProctoringEvent(ctx context.Context, event *models.ProctoringEvent) (int, error)
}

type ResultRepository interface {
	// Create inserts the append-once submission row. A duplicate
	// (test_id, student_email) surfaces as a duplicate-key error which
	// IsDuplicateError recognizes; callers translate it to a conflict.
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id uint) (*models.Result, error)
	GetByTestAndStudent(ctx context.Context, testID uint, studentEmail string) (*models.Result, error)
	GetByTest(ctx context.Context, testID uint, filters ResultFilters) ([]*models.Result, int64, error)
	Update(ctx context.Context, result *models.Result) error
	GetStats(ctx context.Context, testID uint) (*ResultStats, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	IsPublic  *bool      `json:"is_public"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type ResultFilters struct {
	StudentEmail *string    `json:"student_email"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Limit        int        `json:"limit"`
	Offset       int        `json:"offset"`
	SortBy       string     `json:"sort_by"`
	SortOrder    string     `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ResultStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	AverageScore     float64 `json:"average_score"`
	HighestScore     float64 `json:"highest_score"`
	LowestScore      float64 `json:"lowest_score"`
	AverageTimeSpent int     `json:"average_time_spent"`
}

// ===== ERROR CLASSIFICATION =====

// IsNotFoundError reports whether a storage error means the row is absent.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether a storage error is a unique constraint
// violation. Requires TranslateError on the gorm connection.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
