package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories"
)

// fakeRepository is an in-memory repositories.Repository. It reproduces the
// storage contracts the services rely on: gorm.ErrRecordNotFound for absent
// rows and gorm.ErrDuplicatedKey for identity collisions.
type fakeRepository struct {
	tests    *fakeTestRepo
	progress *fakeProgressRepo
	results  *fakeResultRepo
	users    *fakeUserRepo
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tests:    &fakeTestRepo{byID: map[uint]*models.Test{}},
		progress: &fakeProgressRepo{byIdentity: map[string]*models.TestProgress{}},
		results:  &fakeResultRepo{byID: map[uint]*models.Result{}, byIdentity: map[string]uint{}},
		users:    &fakeUserRepo{byID: map[string]*models.User{}},
	}
}

func (f *fakeRepository) Test() repositories.TestRepository         { return f.tests }
func (f *fakeRepository) Progress() repositories.ProgressRepository { return f.progress }
func (f *fakeRepository) Result() repositories.ResultRepository     { return f.results }
func (f *fakeRepository) User() repositories.UserRepository         { return f.users }

func identityKey(testID uint, email string) string {
	return fmt.Sprintf("%d|%s", testID, email)
}

// ----- tests -----

type fakeTestRepo struct {
	byID   map[uint]*models.Test
	nextID uint
}

func (r *fakeTestRepo) Create(_ context.Context, test *models.Test) error {
	r.nextID++
	test.ID = r.nextID
	test.CreatedAt = time.Now()
	copied := *test
	r.byID[test.ID] = &copied
	return nil
}

func (r *fakeTestRepo) GetByID(_ context.Context, id uint) (*models.Test, error) {
	test, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	return &copied, nil
}

func (r *fakeTestRepo) GetByShareToken(_ context.Context, token string) (*models.Test, error) {
	for _, test := range r.byID {
		if test.ShareToken != nil && *test.ShareToken == token {
			copied := *test
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTestRepo) Update(_ context.Context, test *models.Test) error {
	if _, ok := r.byID[test.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *test
	r.byID[test.ID] = &copied
	return nil
}

func (r *fakeTestRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeTestRepo) GetByCreator(_ context.Context, creatorID string, _ repositories.TestFilters) ([]*models.Test, int64, error) {
	var out []*models.Test
	for _, test := range r.byID {
		if test.CreatedBy == creatorID {
			copied := *test
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

// ----- progress -----

type fakeProgressRepo struct {
	byIdentity map[string]*models.TestProgress
	nextID     uint
	events     []models.ProctoringEvent
}

// Upsert stores the snapshot, preserving started_at, warning_count and
// is_completed on conflict. Like the real DoUpdates clause it does not
// backfill the preserved columns into the caller's struct.
func (r *fakeProgressRepo) Upsert(_ context.Context, progress *models.TestProgress) error {
	key := identityKey(progress.TestID, progress.StudentEmail)
	copied := *progress
	if existing, ok := r.byIdentity[key]; ok {
		copied.ID = existing.ID
		copied.StartedAt = existing.StartedAt
		copied.WarningCount = existing.WarningCount
		copied.IsCompleted = existing.IsCompleted
	} else {
		r.nextID++
		copied.ID = r.nextID
	}
	progress.ID = copied.ID
	r.byIdentity[key] = &copied
	return nil
}

func (r *fakeProgressRepo) GetByTestAndStudent(_ context.Context, testID uint, email string) (*models.TestProgress, error) {
	progress, ok := r.byIdentity[identityKey(testID, email)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *progress
	return &copied, nil
}

func (r *fakeProgressRepo) MarkCompleted(_ context.Context, testID uint, email string, at time.Time) error {
	progress, ok := r.byIdentity[identityKey(testID, email)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	progress.IsCompleted = true
	progress.LastSaved = at
	return nil
}

func (r *fakeProgressRepo) Delete(_ context.Context, testID uint, email string) error {
	key := identityKey(testID, email)
	if _, ok := r.byIdentity[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.byIdentity, key)
	return nil
}

func (r *fakeProgressRepo) GetByTest(_ context.Context, testID uint) ([]*models.TestProgress, error) {
	var out []*models.TestProgress
	for _, progress := range r.byIdentity {
		if progress.TestID == testID {
			copied := *progress
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) AddProctoringEvent(_ context.Context, event *models.ProctoringEvent) (int, error) {
	for _, progress := range r.byIdentity {
		if progress.ID == event.ProgressID {
			progress.WarningCount++
			r.events = append(r.events, *event)
			return progress.WarningCount, nil
		}
	}
	return 0, gorm.ErrRecordNotFound
}

// ----- results -----

type fakeResultRepo struct {
	byID       map[uint]*models.Result
	byIdentity map[string]uint
	nextID     uint
}

func (r *fakeResultRepo) Create(_ context.Context, result *models.Result) error {
	key := identityKey(result.TestID, result.StudentEmail)
	if _, ok := r.byIdentity[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.nextID++
	result.ID = r.nextID
	result.CreatedAt = time.Now()
	copied := *result
	r.byID[result.ID] = &copied
	r.byIdentity[key] = result.ID
	return nil
}

func (r *fakeResultRepo) GetByID(_ context.Context, id uint) (*models.Result, error) {
	result, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *result
	return &copied, nil
}

func (r *fakeResultRepo) GetByTestAndStudent(_ context.Context, testID uint, email string) (*models.Result, error) {
	id, ok := r.byIdentity[identityKey(testID, email)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(nil, id)
}

func (r *fakeResultRepo) GetByTest(_ context.Context, testID uint, _ repositories.ResultFilters) ([]*models.Result, int64, error) {
	var out []*models.Result
	for _, result := range r.byID {
		if result.TestID == testID {
			copied := *result
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeResultRepo) Update(_ context.Context, result *models.Result) error {
	if _, ok := r.byID[result.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *result
	r.byID[result.ID] = &copied
	return nil
}

func (r *fakeResultRepo) GetStats(_ context.Context, testID uint) (*repositories.ResultStats, error) {
	stats := &repositories.ResultStats{}
	for _, result := range r.byID {
		if result.TestID != testID {
			continue
		}
		stats.TotalSubmissions++
		stats.AverageScore += result.Score
		if result.Score > stats.HighestScore {
			stats.HighestScore = result.Score
		}
		if stats.TotalSubmissions == 1 || result.Score < stats.LowestScore {
			stats.LowestScore = result.Score
		}
		stats.AverageTimeSpent += result.TimeSpent
	}
	if stats.TotalSubmissions > 0 {
		stats.AverageScore /= float64(stats.TotalSubmissions)
		stats.AverageTimeSpent /= stats.TotalSubmissions
	}
	return stats, nil
}

// ----- users -----

type fakeUserRepo struct {
	byID map[string]*models.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

// ----- shared fixtures -----

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

// sampleTest has one section with two 1-point mcq questions, a 5-point
// descriptive question and one coding question with weighted test cases.
func sampleTest(creatorID string) *models.Test {
	return &models.Test{
		Title:         "Data Structures Midterm",
		Duration:      60,
		TimerMode:     models.TimerGlobal,
		ResumeEnabled: true,
		MaxWarnings:   3,
		ShowScore:     true,
		CreatedBy:     creatorID,
		Sections: []models.Section{
			{
				Title: "Fundamentals",
				Questions: []models.Question{
					{
						Type:          models.QuestionMCQ,
						Text:          "Complexity of binary search?",
						Options:       []string{"O(n)", "O(log n)", "O(1)"},
						CorrectOption: intPtr(1),
					},
					{
						Type:          models.QuestionTrueFalse,
						Text:          "A stack is FIFO.",
						Options:       []string{"True", "False"},
						CorrectOption: intPtr(1),
					},
					{
						Type:   models.QuestionDescriptive,
						Text:   "Explain amortized analysis.",
						Points: 5,
					},
				},
				CodingQuestions: []models.CodingQuestion{
					{
						Title:            "Reverse a list",
						Language:         models.LangPython,
						AllowedLanguages: []models.CodingLanguage{models.LangPython, models.LangGo},
						TestCases: []models.TestCase{
							{Input: "1 2 3", ExpectedOutput: "3 2 1", Weight: 2},
							{Input: "", ExpectedOutput: "", Weight: 1},
						},
					},
				},
			},
		},
	}
}
