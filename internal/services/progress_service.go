package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/testforge/exam-service/internal/events"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/utils"
)

type progressService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	publisher events.EventPublisher
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, publisher events.EventPublisher) ProgressService {
	return &progressService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// normalizeEmail keeps the (test, student) identity stable across clients
// that send mixed-case addresses.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *progressService) Save(ctx context.Context, req *SaveProgressRequest) (*models.TestProgress, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	timeSpent := clampTimeSpent(req.TimeSpent, test.Duration)
	if timeSpent != req.TimeSpent {
		s.logger.Warn("Clamped reported time spent",
			"test_id", req.TestID,
			"student_email", req.StudentEmail,
			"reported", req.TimeSpent,
			"clamped", timeSpent)
	}

	now := time.Now()
	progress := &models.TestProgress{
		TestID:          req.TestID,
		StudentEmail:    normalizeEmail(req.StudentEmail),
		StudentName:     req.StudentName,
		RollNumber:      req.RollNumber,
		CurrentSection:  req.CurrentSection,
		CurrentQuestion: req.CurrentQuestion,
		Answers:         req.Answers,
		CodingAnswers:   req.CodingAnswers,
		TimeSpent:       timeSpent,
		StartedAt:       now,
		LastSaved:       now,
	}

	if err := s.repo.Progress().Upsert(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	// The upsert preserves started_at, warning_count and is_completed from
	// the stored row; re-read so the echoed snapshot matches what the next
	// resume will see.
	stored, err := s.repo.Progress().GetByTestAndStudent(ctx, progress.TestID, progress.StudentEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to reload progress: %w", err)
	}
	return stored, nil
}

func (s *progressService) Get(ctx context.Context, testID uint, studentEmail string) (*models.TestProgress, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.ResumeEnabled {
		return nil, ErrProgressNotFound
	}

	progress, err := s.repo.Progress().GetByTestAndStudent(ctx, testID, normalizeEmail(studentEmail))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	// A completed attempt is not resumable; the snapshot row is kept only
	// for bookkeeping.
	if progress.IsCompleted {
		return nil, ErrProgressNotFound
	}

	return progress, nil
}

func (s *progressService) Complete(ctx context.Context, testID uint, studentEmail string) error {
	email := normalizeEmail(studentEmail)
	if err := s.repo.Progress().MarkCompleted(ctx, testID, email, time.Now()); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrProgressNotFound
		}
		return fmt.Errorf("failed to complete progress: %w", err)
	}

	s.logger.Info("Completed progress", "test_id", testID, "student_email", email)
	return nil
}

func (s *progressService) Reset(ctx context.Context, testID uint, studentEmail string, adminID string) error {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != adminID {
		return NewPermissionError(adminID, testID, "test", "reset_progress", "not the creator")
	}

	email := normalizeEmail(studentEmail)
	if err := s.repo.Progress().Delete(ctx, testID, email); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrProgressNotFound
		}
		return fmt.Errorf("failed to reset progress: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventProgressReset, map[string]interface{}{
		"test_id":       testID,
		"student_email": email,
		"reset_by":      adminID,
	}))

	s.logger.Info("Reset progress", "test_id", testID, "student_email", email, "admin_id", adminID)
	return nil
}

func (s *progressService) RecordWarning(ctx context.Context, req *ProctoringEventRequest) (*WarningStatus, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.StudentEmail)
	progress, err := s.repo.Progress().GetByTestAndStudent(ctx, req.TestID, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	event := &models.ProctoringEvent{
		ProgressID: progress.ID,
		Type:       req.Type,
		Detail:     req.Detail,
		TimeOffset: req.TimeOffset,
	}
	count, err := s.repo.Progress().AddProctoringEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to record proctoring event: %w", err)
	}

	status := &WarningStatus{
		WarningCount:     count,
		MaxWarnings:      test.MaxWarnings,
		ThresholdReached: count >= test.MaxWarnings,
	}

	if status.ThresholdReached {
		s.publish(ctx, events.NewEvent(events.EventWarningThreshold, events.WarningThresholdEvent{
			TestID:       req.TestID,
			StudentEmail: email,
			WarningCount: count,
			MaxWarnings:  test.MaxWarnings,
		}))
	}

	return status, nil
}

// clampTimeSpent caps the client-reported elapsed seconds at the test
// duration plus a small tolerance for save latency.
func clampTimeSpent(reported, durationMinutes int) int {
	max := durationMinutes*60 + 120
	if reported > max {
		return max
	}
	return reported
}

func (s *progressService) publish(ctx context.Context, event *events.ExamEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
