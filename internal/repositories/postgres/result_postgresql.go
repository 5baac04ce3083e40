package postgres

import (
	"context"

	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

// Create relies on the unique (test_id, student_email) index to reject a
// second submission; the race between two near-simultaneous submits is
// closed by the constraint, not by a check-then-insert.
func (r ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r ResultPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r ResultPostgreSQL) GetByTestAndStudent(ctx context.Context, testID uint, studentEmail string) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("test_id = ? AND student_email = ?", testID, studentEmail).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r ResultPostgreSQL) GetByTest(ctx context.Context, testID uint, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	var results []*models.Result
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Result{}).Where("test_id = ?", testID)
	if filters.StudentEmail != nil {
		query = query.Where("student_email = ?", *filters.StudentEmail)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filters.SortBy
	switch sortBy {
	case "score", "created_at", "student_email":
	default:
		sortBy = "created_at"
	}
	order := "desc"
	if filters.SortOrder == "asc" {
		order = "asc"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// Update persists the per-question grades and the recomputed aggregate as
// one row write, so a reader never sees a grade without its aggregate.
func (r ResultPostgreSQL) Update(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Save(result).Error
}

func (r ResultPostgreSQL) GetStats(ctx context.Context, testID uint) (*repositories.ResultStats, error) {
	var stats repositories.ResultStats
	err := r.db.WithContext(ctx).
		Model(&models.Result{}).
		Where("test_id = ?", testID).
		Select(
			"COUNT(*) as total_submissions",
			"COALESCE(AVG(score), 0) as average_score",
			"COALESCE(MAX(score), 0) as highest_score",
			"COALESCE(MIN(score), 0) as lowest_score",
			"COALESCE(AVG(time_spent), 0)::int as average_time_spent",
		).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
