package services

import (
	"log/slog"

	"github.com/testforge/exam-service/internal/cache"
	"github.com/testforge/exam-service/internal/events"
	"github.com/testforge/exam-service/internal/judge"
	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/utils"
)

type serviceManager struct {
	test     TestService
	progress ProgressService
	result   ResultService
	runner   RunnerService
	user     UserService
}

// Dependencies bundles the collaborators every service draws from.
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *utils.Validator
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Judge     judge.Client
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NoopCache{}
	}
	return &serviceManager{
		test:     NewTestService(deps.Repo, deps.Logger, deps.Validator, deps.Cache),
		progress: NewProgressService(deps.Repo, deps.Logger, deps.Validator, deps.Publisher),
		result:   NewResultService(deps.Repo, deps.Logger, deps.Validator, deps.Publisher),
		runner:   NewRunnerService(deps.Judge, deps.Logger, deps.Validator),
		user:     NewUserService(deps.Repo, deps.Logger),
	}
}

func (m *serviceManager) Test() TestService         { return m.test }
func (m *serviceManager) Progress() ProgressService { return m.progress }
func (m *serviceManager) Result() ResultService     { return m.result }
func (m *serviceManager) Runner() RunnerService     { return m.runner }
func (m *serviceManager) User() UserService         { return m.user }
