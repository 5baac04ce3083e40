package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/exam-service/internal/events"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/utils"
)

func newProgressFixture(t *testing.T) (ProgressService, *fakeRepository, *events.MockEventPublisher, uint) {
	t.Helper()

	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(quietLogger())
	svc := NewProgressService(repo, quietLogger(), utils.NewValidator(), publisher)

	test := sampleTest(adminID)
	require.NoError(t, repo.Test().Create(context.Background(), test))

	return svc, repo, publisher, test.ID
}

func saveRequest(testID uint) *SaveProgressRequest {
	return &SaveProgressRequest{
		TestID:          testID,
		StudentEmail:    "Student@Example.com",
		StudentName:     "Student One",
		RollNumber:      "CS-042",
		CurrentSection:  0,
		CurrentQuestion: 1,
		Answers: []models.ProgressAnswer{
			{SectionIndex: 0, QuestionIndex: 0, SelectedOption: intPtr(1)},
		},
		TimeSpent: 300,
	}
}

func TestSaveAndGetProgress(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", saved.StudentEmail)

	got, err := svc.Get(ctx, testID, "STUDENT@example.com")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, 1, got.CurrentQuestion)
	assert.Len(t, got.Answers, 1)
	assert.Equal(t, 300, got.TimeSpent)
}

func TestSaveProgress_LastWriteWins(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	// The second save carries fewer answers; it fully replaces the first.
	second := saveRequest(testID)
	second.Answers = nil
	second.CurrentQuestion = 2
	second.TimeSpent = 400
	_, err = svc.Save(ctx, second)
	require.NoError(t, err)

	got, err := svc.Get(ctx, testID, "student@example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Answers)
	assert.Equal(t, 2, got.CurrentQuestion)
	assert.Equal(t, 400, got.TimeSpent)
}

func TestSaveProgress_EchoesStoredRow(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	// A warning lands between saves; the next save must echo the stored
	// count and the original start time, not the fresh struct it wrote.
	_, err = svc.RecordWarning(ctx, &ProctoringEventRequest{
		TestID:       testID,
		StudentEmail: "student@example.com",
		Type:         models.EventTabSwitch,
	})
	require.NoError(t, err)

	second, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)
	assert.Equal(t, 1, second.WarningCount)
	assert.True(t, second.StartedAt.Equal(first.StartedAt))
}

func TestSaveProgress_ClampsTimeSpent(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	req := saveRequest(testID)
	req.TimeSpent = 100000 // far beyond the 60-minute duration

	saved, err := svc.Save(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 60*60+120, saved.TimeSpent)
}

func TestSaveProgress_UnknownTest(t *testing.T) {
	svc, _, _, _ := newProgressFixture(t)

	_, err := svc.Save(context.Background(), saveRequest(999))
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestGetProgress_NeverStarted(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)

	_, err := svc.Get(context.Background(), testID, "nobody@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestGetProgress_ResumeDisabled(t *testing.T) {
	svc, repo, _, _ := newProgressFixture(t)
	ctx := context.Background()

	test := sampleTest(adminID)
	test.ResumeEnabled = false
	require.NoError(t, repo.Test().Create(ctx, test))

	req := saveRequest(test.ID)
	_, err := svc.Save(ctx, req)
	require.NoError(t, err)

	_, err = svc.Get(ctx, test.ID, "student@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestCompleteProgress(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	err = svc.Complete(ctx, testID, "STUDENT@example.com")
	require.NoError(t, err)

	// A completed attempt is no longer resumable.
	_, err = svc.Get(ctx, testID, "student@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestCompleteProgress_NeverStarted(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)

	err := svc.Complete(context.Background(), testID, "nobody@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestResetProgress(t *testing.T) {
	svc, _, publisher, testID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	err = svc.Reset(ctx, testID, "student@example.com", adminID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, testID, "student@example.com")
	assert.ErrorIs(t, err, ErrProgressNotFound)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventProgressReset, published[0].Type)
}

func TestResetProgress_RequiresOwnership(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	err = svc.Reset(ctx, testID, "student@example.com", "intruder")
	assert.True(t, IsUnauthorized(err))
}

func TestRecordWarning_Threshold(t *testing.T) {
	svc, _, publisher, testID := newProgressFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveRequest(testID))
	require.NoError(t, err)

	event := &ProctoringEventRequest{
		TestID:       testID,
		StudentEmail: "student@example.com",
		Type:         models.EventTabSwitch,
		TimeOffset:   42,
	}

	for i := 1; i <= 2; i++ {
		status, err := svc.RecordWarning(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, i, status.WarningCount)
		assert.False(t, status.ThresholdReached)
	}
	assert.Empty(t, publisher.GetPublishedEvents())

	// Third warning hits MaxWarnings.
	status, err := svc.RecordWarning(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, 3, status.WarningCount)
	assert.True(t, status.ThresholdReached)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventWarningThreshold, published[0].Type)
}

func TestRecordWarning_NoProgress(t *testing.T) {
	svc, _, _, testID := newProgressFixture(t)

	_, err := svc.RecordWarning(context.Background(), &ProctoringEventRequest{
		TestID:       testID,
		StudentEmail: "nobody@example.com",
		Type:         models.EventWindowBlur,
	})
	assert.ErrorIs(t, err, ErrProgressNotFound)
}
