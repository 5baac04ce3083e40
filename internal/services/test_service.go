package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/testforge/exam-service/internal/cache"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/scoring"
	"github.com/testforge/exam-service/internal/utils"
)

const studentViewCacheTTL = 5 * time.Minute

type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	cache     cache.CacheService
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, cache cache.CacheService) TestService {
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cache,
	}
}

// ===== CRUD OPERATIONS =====

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test := &models.Test{
		Title:         req.Title,
		Duration:      req.Duration,
		TimerMode:     req.TimerMode,
		Sections:      req.Sections,
		ResumeEnabled: true,
		MaxWarnings:   3,
		ShowScore:     true,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		CreatedBy:     creatorID,
	}
	if test.TimerMode == "" {
		test.TimerMode = models.TimerGlobal
	}
	if req.ResumeEnabled != nil {
		test.ResumeEnabled = *req.ResumeEnabled
	}
	if req.MaxWarnings != nil {
		test.MaxWarnings = *req.MaxWarnings
	}
	if req.ShowScore != nil {
		test.ShowScore = *req.ShowScore
	}

	if errs := s.validator.ValidateTest(test); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.annotate(test)
	return test, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.getOwned(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Duration != nil {
		test.Duration = *req.Duration
	}
	if req.TimerMode != nil {
		test.TimerMode = *req.TimerMode
	}
	if req.Sections != nil {
		test.Sections = *req.Sections
		// Replacing sections supersedes any legacy flat question list.
		test.Questions = nil
	}
	if req.ResumeEnabled != nil {
		test.ResumeEnabled = *req.ResumeEnabled
	}
	if req.MaxWarnings != nil {
		test.MaxWarnings = *req.MaxWarnings
	}
	if req.ShowScore != nil {
		test.ShowScore = *req.ShowScore
	}
	if req.StartAt != nil {
		test.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		test.EndAt = req.EndAt
	}

	if errs := s.validator.ValidateTest(test); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}

	s.invalidateStudentView(ctx, test)

	s.logger.Info("Updated test", "test_id", test.ID, "user_id", userID)
	s.annotate(test)
	return test, nil
}

func (s *testService) Delete(ctx context.Context, id uint, userID string) error {
	test, err := s.getOwned(ctx, id, userID, "delete")
	if err != nil {
		return err
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.invalidateStudentView(ctx, test)

	s.logger.Info("Deleted test", "test_id", id, "user_id", userID)
	return nil
}

func (s *testService) GetByID(ctx context.Context, id uint, userID string) (*models.Test, error) {
	test, err := s.getOwned(ctx, id, userID, "read")
	if err != nil {
		return nil, err
	}
	s.annotate(test)
	return test, nil
}

func (s *testService) List(ctx context.Context, userID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	tests, total, err := s.repo.Test().GetByCreator(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	for _, t := range tests {
		s.annotate(t)
	}
	return tests, total, nil
}

// ===== SHARING =====

func (s *testService) Share(ctx context.Context, id uint, userID string) (string, error) {
	test, err := s.getOwned(ctx, id, userID, "share")
	if err != nil {
		return "", err
	}

	if test.IsPublic && test.ShareToken != nil {
		return *test.ShareToken, nil
	}

	token := uuid.NewString()
	test.IsPublic = true
	test.ShareToken = &token

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return "", fmt.Errorf("failed to share test: %w", err)
	}

	s.logger.Info("Shared test", "test_id", id, "user_id", userID)
	return token, nil
}

func (s *testService) Unshare(ctx context.Context, id uint, userID string) error {
	test, err := s.getOwned(ctx, id, userID, "unshare")
	if err != nil {
		return err
	}

	if !test.IsPublic {
		return nil
	}

	s.invalidateStudentView(ctx, test)

	test.IsPublic = false
	test.ShareToken = nil

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return fmt.Errorf("failed to unshare test: %w", err)
	}

	s.logger.Info("Unshared test", "test_id", id, "user_id", userID)
	return nil
}

// ===== STUDENT VIEW =====

func (s *testService) GetForStudent(ctx context.Context, shareToken string) (*StudentTestView, error) {
	cacheKey := studentViewCacheKey(shareToken)

	var cached StudentTestView
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	test, err := s.repo.Test().GetByShareToken(ctx, shareToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}

	if !test.IsPublic {
		return nil, ErrTestNotShared
	}
	if !test.AvailableAt(time.Now()) {
		return nil, ErrTestNotAvailable
	}

	view := buildStudentView(test)

	if err := s.cache.Set(ctx, cacheKey, view, studentViewCacheTTL); err != nil {
		s.logger.Warn("Failed to cache student view", "test_id", test.ID, "error", err)
	}

	return view, nil
}

// buildStudentView copies the test structure and strips every answer key.
func buildStudentView(test *models.Test) *StudentTestView {
	sections := scoring.Normalize(test)

	redacted := make([]models.Section, len(sections))
	for i, sec := range sections {
		out := sec
		out.Questions = make([]models.Question, len(sec.Questions))
		for j, q := range sec.Questions {
			q.CorrectOption = nil
			q.CorrectText = nil
			q.AcceptableAnswers = nil
			q.ModelAnswer = nil
			out.Questions[j] = q
		}
		redacted[i] = out
	}

	count := 0
	for _, sec := range sections {
		count += len(sec.Questions) + len(sec.CodingQuestions)
	}

	return &StudentTestView{
		ID:            test.ID,
		Title:         test.Title,
		Duration:      test.Duration,
		TimerMode:     test.TimerMode,
		Sections:      redacted,
		ResumeEnabled: test.ResumeEnabled,
		MaxWarnings:   test.MaxWarnings,
		QuestionCount: count,
		TotalMarks:    scoring.TotalMarks(sections),
	}
}

// ===== HELPERS =====

// getOwned loads a test and enforces that userID created it.
func (s *testService) getOwned(ctx context.Context, id uint, userID, action string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "test", action, "not the creator")
	}
	return test, nil
}

func (s *testService) annotate(test *models.Test) {
	sections := scoring.Normalize(test)
	count := 0
	for _, sec := range sections {
		count += len(sec.Questions) + len(sec.CodingQuestions)
	}
	test.QuestionCount = count
	test.TotalMarks = scoring.TotalMarks(sections)
}

func (s *testService) invalidateStudentView(ctx context.Context, test *models.Test) {
	if test.ShareToken == nil {
		return
	}
	if err := s.cache.Delete(ctx, studentViewCacheKey(*test.ShareToken)); err != nil {
		s.logger.Warn("Failed to invalidate student view cache", "test_id", test.ID, "error", err)
	}
}

func studentViewCacheKey(token string) string {
	return "student_view:" + token
}
