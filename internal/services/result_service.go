package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/testforge/exam-service/internal/events"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/scoring"
	"github.com/testforge/exam-service/internal/utils"
)

type resultService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	publisher events.EventPublisher
}

func NewResultService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, publisher events.EventPublisher) ResultService {
	return &resultService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== SUBMISSION =====

func (s *resultService) Submit(ctx context.Context, req *SubmitRequest) (*SubmissionReceipt, error) {
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

	if err := validateCodingLanguages(test, req.CodingAnswers); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.StudentEmail)
	timeSpent := clampTimeSpent(req.TimeSpent, test.Duration)
	if timeSpent != req.TimeSpent {
		s.logger.Warn("Clamped reported time spent on submit",
			"test_id", req.TestID,
			"student_email", email,
			"reported", req.TimeSpent,
			"clamped", timeSpent)
	}

	graded := scoring.Grade(test, req.Answers, req.CodingAnswers)

	result := &models.Result{
		TestID:             req.TestID,
		StudentEmail:       email,
		StudentName:        req.StudentName,
		RollNumber:         req.RollNumber,
		Answers:            graded.Answers,
		DescriptiveAnswers: graded.Descriptive,
		CodingAnswers:      graded.Coding,
		Score:              graded.Score,
		TotalMarks:         graded.TotalMarks,
		TimeSpent:          timeSpent,
		IsResumed:          req.IsResumed,
	}

	if err := s.repo.Result().Create(ctx, result); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, s.submissionConflict(ctx, test, email)
		}
		return nil, fmt.Errorf("failed to create result: %w", err)
	}

	// The progress row is closed best-effort: the result is already the
	// source of truth, so a failure here must not fail the submit.
	if err := s.repo.Progress().MarkCompleted(ctx, req.TestID, email, time.Now()); err != nil && !repositories.IsNotFoundError(err) {
		s.logger.Warn("Failed to mark progress completed",
			"test_id", req.TestID,
			"student_email", email,
			"error", err)
	}

	s.publish(ctx, events.NewEvent(events.EventExamSubmitted, events.ExamSubmittedEvent{
		TestID:       test.ID,
		TestTitle:    test.Title,
		ResultID:     result.ID,
		StudentEmail: email,
		StudentName:  req.StudentName,
		Score:        result.Score,
		TotalMarks:   result.TotalMarks,
		IsResumed:    result.IsResumed,
		SubmittedAt:  result.CreatedAt,
	}))

	s.logger.Info("Recorded submission",
		"test_id", req.TestID,
		"result_id", result.ID,
		"student_email", email,
		"score", result.Score,
		"total_marks", result.TotalMarks)

	receipt := &SubmissionReceipt{
		ResultID:             result.ID,
		SubmittedAt:          result.CreatedAt,
		ShowScore:            test.ShowScore,
		PendingManualGrading: !scoring.FullyGraded(result),
	}
	if test.ShowScore {
		receipt.Score = &result.Score
		receipt.TotalMarks = &result.TotalMarks
	}
	return receipt, nil
}

// submissionConflict builds the conflict error carrying the existing
// submission's summary. The duplicate-key error already proved the row
// exists; a read failure here degrades to a bare conflict.
func (s *resultService) submissionConflict(ctx context.Context, test *models.Test, email string) error {
	existing, err := s.repo.Result().GetByTestAndStudent(ctx, test.ID, email)
	if err != nil {
		s.logger.Error("Failed to load existing submission for conflict response",
			"test_id", test.ID,
			"student_email", email,
			"error", err)
		return ErrAlreadySubmitted
	}

	summary := SubmissionSummary{
		ResultID:     existing.ID,
		TestID:       existing.TestID,
		StudentEmail: existing.StudentEmail,
		SubmittedAt:  existing.CreatedAt,
	}
	if test.ShowScore {
		summary.Score = &existing.Score
		summary.TotalMarks = &existing.TotalMarks
	}
	return &SubmissionConflictError{Existing: summary}
}

func (s *resultService) Status(ctx context.Context, testID uint, studentEmail string) (*SubmissionStatus, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	result, err := s.repo.Result().GetByTestAndStudent(ctx, testID, normalizeEmail(studentEmail))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &SubmissionStatus{Submitted: false}, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	status := &SubmissionStatus{Submitted: true, SubmittedAt: &result.CreatedAt}
	if test.ShowScore {
		status.Score = &result.Score
		status.TotalMarks = &result.TotalMarks
	}
	return status, nil
}

// ===== ADMIN READS =====

func (s *resultService) GetByID(ctx context.Context, resultID uint, adminID string) (*models.Result, error) {
	result, err := s.repo.Result().GetByID(ctx, resultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if _, err := s.ownedTest(ctx, result.TestID, adminID, "read_result"); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *resultService) GetByTest(ctx context.Context, testID uint, adminID string, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	if _, err := s.ownedTest(ctx, testID, adminID, "list_results"); err != nil {
		return nil, 0, err
	}
	results, total, err := s.repo.Result().GetByTest(ctx, testID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}
	return results, total, nil
}

func (s *resultService) Stats(ctx context.Context, testID uint, adminID string) (*repositories.ResultStats, error) {
	if _, err := s.ownedTest(ctx, testID, adminID, "read_stats"); err != nil {
		return nil, err
	}
	stats, err := s.repo.Result().GetStats(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// ===== MANUAL GRADING =====

func (s *resultService) EvaluateDescriptive(ctx context.Context, req *EvaluateRequest, adminID string) (*GradeReceipt, error) {
	return s.evaluate(ctx, req, adminID, func(result *models.Result) (*float64, error) {
		for i := range result.DescriptiveAnswers {
			entry := &result.DescriptiveAnswers[i]
			if entry.SectionIndex == req.SectionIndex && entry.QuestionIndex == req.QuestionIndex {
				if req.Score < 0 || req.Score > entry.MaxPoints {
					return nil, ErrScoreOutOfRange
				}
				entry.Score = &req.Score
				entry.Feedback = req.Feedback
				return &entry.MaxPoints, nil
			}
		}
		return nil, ErrNoSuchQuestion
	})
}

func (s *resultService) EvaluateCoding(ctx context.Context, req *EvaluateRequest, adminID string) (*GradeReceipt, error) {
	return s.evaluate(ctx, req, adminID, func(result *models.Result) (*float64, error) {
		for i := range result.CodingAnswers {
			entry := &result.CodingAnswers[i]
			if entry.SectionIndex == req.SectionIndex && entry.CodingQuestionIndex == req.QuestionIndex {
				if req.Score < 0 || req.Score > entry.MaxPoints {
					return nil, ErrScoreOutOfRange
				}
				entry.Score = &req.Score
				entry.Feedback = req.Feedback
				return &entry.MaxPoints, nil
			}
		}
		return nil, ErrNoSuchQuestion
	})
}

// evaluate runs the shared grading flow: load, authorize, apply one grade,
// recompute the aggregate and persist in a single write.
func (s *resultService) evaluate(ctx context.Context, req *EvaluateRequest, adminID string, apply func(*models.Result) (*float64, error)) (*GradeReceipt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	result, err := s.repo.Result().GetByID(ctx, req.ResultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if _, err := s.ownedTest(ctx, result.TestID, adminID, "grade"); err != nil {
		return nil, err
	}

	if _, err := apply(result); err != nil {
		return nil, err
	}

	result.Score = scoring.Aggregate(result)

	if err := s.repo.Result().Update(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	fullyGraded := scoring.FullyGraded(result)
	if fullyGraded {
		s.publish(ctx, events.NewEvent(events.EventExamGraded, events.ExamGradedEvent{
			TestID:       result.TestID,
			ResultID:     result.ID,
			StudentEmail: result.StudentEmail,
			Score:        result.Score,
			TotalMarks:   result.TotalMarks,
			GradedBy:     adminID,
		}))
	}

	s.logger.Info("Recorded manual grade",
		"result_id", result.ID,
		"section", req.SectionIndex,
		"question", req.QuestionIndex,
		"score", req.Score,
		"admin_id", adminID)

	return &GradeReceipt{
		ResultID:    result.ID,
		Score:       result.Score,
		TotalMarks:  result.TotalMarks,
		FullyGraded: fullyGraded,
	}, nil
}

// ===== EXPORT =====

func (s *resultService) ExportByTest(ctx context.Context, testID uint, adminID string) ([]byte, error) {
	test, err := s.ownedTest(ctx, testID, adminID, "export")
	if err != nil {
		return nil, err
	}

	results, _, err := s.repo.Result().GetByTest(ctx, testID, repositories.ResultFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student Name", "Email", "Roll Number", "Score", "Total Marks", "Percent", "Time Spent (s)", "Resumed", "Fully Graded", "Submitted At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, r := range results {
		percent := 0.0
		if r.TotalMarks > 0 {
			percent = r.Score / r.TotalMarks * 100
		}
		values := []interface{}{
			r.StudentName,
			r.StudentEmail,
			r.RollNumber,
			r.Score,
			r.TotalMarks,
			fmt.Sprintf("%.1f%%", percent),
			r.TimeSpent,
			r.IsResumed,
			scoring.FullyGraded(r),
			r.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exported results", "test_id", testID, "test_title", test.Title, "count", len(results))
	return buf.Bytes(), nil
}

// ===== HELPERS =====

// validateCodingLanguages rejects a submission whose code answers use a
// language the question does not allow. Out-of-range coordinates are left
// alone; the scoring pass ignores them.
func validateCodingLanguages(test *models.Test, code []scoring.SubmittedCode) error {
	sections := scoring.Normalize(test)
	for _, sub := range code {
		if sub.Language == "" {
			continue
		}
		if sub.SectionIndex < 0 || sub.SectionIndex >= len(sections) {
			continue
		}
		questions := sections[sub.SectionIndex].CodingQuestions
		if sub.CodingQuestionIndex < 0 || sub.CodingQuestionIndex >= len(questions) {
			continue
		}

		allowed := false
		for _, lang := range questions[sub.CodingQuestionIndex].AllowedLanguages {
			if lang == sub.Language {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s is not allowed for coding question %d.%d",
				ErrUnsupportedLanguage, sub.Language, sub.SectionIndex, sub.CodingQuestionIndex)
		}
	}
	return nil
}

func (s *resultService) ownedTest(ctx context.Context, testID uint, adminID, action string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != adminID {
		return nil, NewPermissionError(adminID, testID, "test", action, "not the creator")
	}
	return test, nil
}

func (s *resultService) publish(ctx context.Context, event *events.ExamEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
