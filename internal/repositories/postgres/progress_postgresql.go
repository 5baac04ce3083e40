package postgres

import (
	"context"
	"time"

	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// Upsert replaces the whole snapshot for the (test_id, student_email) key.
// The ON CONFLICT clause makes the create-or-replace atomic, so two
// concurrent saves settle on whichever lands second.
func (p ProgressPostgreSQL) Upsert(ctx context.Context, progress *models.TestProgress) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "test_id"}, {Name: "student_email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_name", "roll_number",
			"current_section", "current_question",
			"answers", "coding_answers",
			"time_spent", "last_saved",
		}),
	}).Create(progress).Error
}

func (p ProgressPostgreSQL) GetByTestAndStudent(ctx context.Context, testID uint, studentEmail string) (*models.TestProgress, error) {
	var progress models.TestProgress
	if err := p.db.WithContext(ctx).
		Where("test_id = ? AND student_email = ?", testID, studentEmail).
		First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (p ProgressPostgreSQL) MarkCompleted(ctx context.Context, testID uint, studentEmail string, at time.Time) error {
	res := p.db.WithContext(ctx).
		Model(&models.TestProgress{}).
		Where("test_id = ? AND student_email = ?", testID, studentEmail).
		Updates(map[string]interface{}{
			"is_completed": true,
			"last_saved":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (p ProgressPostgreSQL) Delete(ctx context.Context, testID uint, studentEmail string) error {
	res := p.db.WithContext(ctx).
		Where("test_id = ? AND student_email = ?", testID, studentEmail).
		Delete(&models.TestProgress{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (p ProgressPostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.TestProgress, error) {
	var rows []*models.TestProgress
	if err := p.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("last_saved desc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AddProctoringEvent records the event and bumps the owning snapshot's
// warning count in one transaction, returning the new count.
func (p ProgressPostgreSQL) AddProctoringEvent(ctx context.Context, event *models.ProctoringEvent) (int, error) {
	var count int
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TestProgress{}).
			Where("id = ?", event.ProgressID).
			UpdateColumn("warning_count", gorm.Expr("warning_count + 1")).Error; err != nil {
			return err
		}
		var progress models.TestProgress
		if err := tx.Select("warning_count").First(&progress, event.ProgressID).Error; err != nil {
			return err
		}
		count = progress.WarningCount
		return nil
	})
	return count, err
}
