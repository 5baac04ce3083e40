package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/exam-service/internal/events"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/scoring"
	"github.com/testforge/exam-service/internal/utils"
)

const adminID = "admin-1"

func newResultFixture(t *testing.T) (ResultService, *fakeRepository, *events.MockEventPublisher, uint) {
	t.Helper()

	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(quietLogger())
	svc := NewResultService(repo, quietLogger(), utils.NewValidator(), publisher)

	test := sampleTest(adminID)
	require.NoError(t, repo.Test().Create(context.Background(), test))

	return svc, repo, publisher, test.ID
}

func correctSubmission(testID uint) *SubmitRequest {
	return &SubmitRequest{
		TestID:       testID,
		StudentEmail: "Student@Example.com",
		StudentName:  "Student One",
		RollNumber:   "CS-042",
		Answers: []scoring.SubmittedAnswer{
			{SectionIndex: 0, QuestionIndex: 0, SelectedOption: intPtr(1)},
			{SectionIndex: 0, QuestionIndex: 1, SelectedOption: intPtr(1)},
			{SectionIndex: 0, QuestionIndex: 2, TextAnswer: strPtr("Averaging cost over a sequence of operations.")},
		},
		CodingAnswers: []scoring.SubmittedCode{
			{SectionIndex: 0, CodingQuestionIndex: 0, SourceCode: "print(input()[::-1])"},
		},
		TimeSpent: 1800,
	}
}

func TestSubmit_ScoresObjectiveAndFreezesTotals(t *testing.T) {
	svc, repo, publisher, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	// 2 objective points; descriptive (5) and coding (3) await manual grades.
	require.NotNil(t, receipt.Score)
	assert.Equal(t, 2.0, *receipt.Score)
	require.NotNil(t, receipt.TotalMarks)
	assert.Equal(t, 10.0, *receipt.TotalMarks)
	assert.True(t, receipt.PendingManualGrading)

	stored, err := repo.Result().GetByID(ctx, receipt.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", stored.StudentEmail)
	assert.Equal(t, 10.0, stored.TotalMarks)
	assert.Len(t, stored.Answers, 2)
	assert.Len(t, stored.DescriptiveAnswers, 1)
	assert.Len(t, stored.CodingAnswers, 1)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventExamSubmitted, published[0].Type)
}

func TestSubmit_SecondSubmitConflicts(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	// Same identity, different casing and different answers.
	retry := correctSubmission(testID)
	retry.StudentEmail = "STUDENT@example.com"
	retry.Answers = nil

	_, err = svc.Submit(ctx, retry)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var conflict *SubmissionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ResultID, conflict.Existing.ResultID)
	assert.Equal(t, "student@example.com", conflict.Existing.StudentEmail)

	// The summary carries the first submission's score, not the retry's.
	require.NotNil(t, conflict.Existing.Score)
	assert.Equal(t, 2.0, *conflict.Existing.Score)
	require.NotNil(t, conflict.Existing.TotalMarks)
	assert.Equal(t, 10.0, *conflict.Existing.TotalMarks)
}

func TestSubmit_ClosesProgressSnapshot(t *testing.T) {
	svc, repo, _, testID := newResultFixture(t)
	ctx := context.Background()

	progressSvc := NewProgressService(repo, quietLogger(), utils.NewValidator(), nil)
	_, err := progressSvc.Save(ctx, &SaveProgressRequest{
		TestID:       testID,
		StudentEmail: "student@example.com",
		StudentName:  "Student One",
		TimeSpent:    600,
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	_, err = progressSvc.Get(ctx, testID, "student@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestSubmit_HidesScoreWhenConfigured(t *testing.T) {
	repo := newFakeRepository()
	svc := NewResultService(repo, quietLogger(), utils.NewValidator(), nil)
	ctx := context.Background()

	test := sampleTest(adminID)
	test.ShowScore = false
	require.NoError(t, repo.Test().Create(ctx, test))

	receipt, err := svc.Submit(ctx, correctSubmission(test.ID))
	require.NoError(t, err)
	assert.False(t, receipt.ShowScore)
	assert.Nil(t, receipt.Score)
	assert.Nil(t, receipt.TotalMarks)
}

func TestSubmit_UnknownTest(t *testing.T) {
	svc, _, _, _ := newResultFixture(t)

	_, err := svc.Submit(context.Background(), correctSubmission(999))
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestSubmit_RejectsUnknownLanguage(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)

	req := correctSubmission(testID)
	req.CodingAnswers[0].Language = "cobol"

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSubmit_RejectsDisallowedLanguage(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)

	// javascript is a supported language, but the question only allows
	// python and go.
	req := correctSubmission(testID)
	req.CodingAnswers[0].Language = models.LangJavaScript

	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.True(t, IsValidation(err))
}

func TestSubmit_AllowedLanguageAccepted(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)

	req := correctSubmission(testID)
	req.CodingAnswers[0].Language = models.LangGo

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
}

func TestStatus(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	status, err := svc.Status(ctx, testID, "student@example.com")
	require.NoError(t, err)
	assert.False(t, status.Submitted)
	assert.Nil(t, status.SubmittedAt)

	_, err = svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	status, err = svc.Status(ctx, testID, "Student@Example.com")
	require.NoError(t, err)
	assert.True(t, status.Submitted)
	assert.NotNil(t, status.SubmittedAt)
	require.NotNil(t, status.Score)
	assert.Equal(t, 2.0, *status.Score)
	require.NotNil(t, status.TotalMarks)
	assert.Equal(t, 10.0, *status.TotalMarks)
}

func TestStatus_HidesScoreWhenConfigured(t *testing.T) {
	repo := newFakeRepository()
	svc := NewResultService(repo, quietLogger(), utils.NewValidator(), nil)
	ctx := context.Background()

	test := sampleTest(adminID)
	test.ShowScore = false
	require.NoError(t, repo.Test().Create(ctx, test))

	_, err := svc.Submit(ctx, correctSubmission(test.ID))
	require.NoError(t, err)

	status, err := svc.Status(ctx, test.ID, "student@example.com")
	require.NoError(t, err)
	assert.True(t, status.Submitted)
	assert.Nil(t, status.Score)
	assert.Nil(t, status.TotalMarks)
}

func TestStatus_UnknownTest(t *testing.T) {
	svc, _, _, _ := newResultFixture(t)

	_, err := svc.Status(context.Background(), 999, "student@example.com")
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestEvaluate_GradingProgression(t *testing.T) {
	svc, _, publisher, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)
	publisher.ClearEvents()

	// Grade the descriptive question: aggregate grows, still not fully graded.
	grade, err := svc.EvaluateDescriptive(ctx, &EvaluateRequest{
		ResultID:      receipt.ResultID,
		SectionIndex:  0,
		QuestionIndex: 2,
		Score:         4,
		Feedback:      strPtr("Good coverage, missed the potential method."),
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, grade.Score)
	assert.False(t, grade.FullyGraded)
	assert.Empty(t, publisher.GetPublishedEvents())

	// Grade the coding question: now fully graded, event fires.
	grade, err = svc.EvaluateCoding(ctx, &EvaluateRequest{
		ResultID:      receipt.ResultID,
		SectionIndex:  0,
		QuestionIndex: 0,
		Score:         3,
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, grade.Score)
	assert.True(t, grade.FullyGraded)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventExamGraded, published[0].Type)
}

func TestEvaluate_ScoreBounds(t *testing.T) {
	svc, repo, _, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	cases := []struct {
		name  string
		score float64
	}{
		{"above max", 5.5},
		{"negative", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.EvaluateDescriptive(ctx, &EvaluateRequest{
				ResultID:      receipt.ResultID,
				SectionIndex:  0,
				QuestionIndex: 2,
				Score:         tc.score,
			}, adminID)
			assert.ErrorIs(t, err, ErrScoreOutOfRange)
		})
	}

	// A rejected grade leaves the stored aggregate untouched.
	stored, err := repo.Result().GetByID(ctx, receipt.ResultID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.Score)
}

func TestEvaluate_NoSuchQuestion(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	_, err = svc.EvaluateDescriptive(ctx, &EvaluateRequest{
		ResultID:      receipt.ResultID,
		SectionIndex:  0,
		QuestionIndex: 7,
		Score:         1,
	}, adminID)
	assert.ErrorIs(t, err, ErrNoSuchQuestion)
}

func TestEvaluate_RegradeReplacesScore(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	_, err = svc.EvaluateDescriptive(ctx, &EvaluateRequest{
		ResultID: receipt.ResultID, SectionIndex: 0, QuestionIndex: 2, Score: 5,
	}, adminID)
	require.NoError(t, err)

	grade, err := svc.EvaluateDescriptive(ctx, &EvaluateRequest{
		ResultID: receipt.ResultID, SectionIndex: 0, QuestionIndex: 2, Score: 2,
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, grade.Score)
}

func TestResultAccess_RequiresOwnership(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, receipt.ResultID, "intruder")
	assert.True(t, IsUnauthorized(err))

	_, err = svc.EvaluateDescriptive(ctx, &EvaluateRequest{
		ResultID: receipt.ResultID, SectionIndex: 0, QuestionIndex: 2, Score: 1,
	}, "intruder")
	assert.True(t, IsUnauthorized(err))

	_, _, err = svc.GetByTest(ctx, testID, "intruder", repositories.ResultFilters{})
	assert.True(t, IsUnauthorized(err))
}

func TestExportByTest(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	data, err := svc.ExportByTest(ctx, testID, adminID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// XLSX files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestStats(t *testing.T) {
	svc, _, _, testID := newResultFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, correctSubmission(testID))
	require.NoError(t, err)

	second := correctSubmission(testID)
	second.StudentEmail = "other@example.com"
	second.Answers = second.Answers[:1]
	_, err = svc.Submit(ctx, second)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, testID, adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSubmissions)
	assert.Equal(t, 1.5, stats.AverageScore)
	assert.Equal(t, 2.0, stats.HighestScore)
	assert.Equal(t, 1.0, stats.LowestScore)
}

func TestSubmissionConflictError_Unwraps(t *testing.T) {
	err := error(&SubmissionConflictError{Existing: SubmissionSummary{ResultID: 1}})
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))
}
