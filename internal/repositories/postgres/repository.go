package postgres

import (
	"github.com/testforge/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	test     repositories.TestRepository
	progress repositories.ProgressRepository
	result   repositories.ResultRepository
	user     repositories.UserRepository
}

// NewRepository wires the gorm-backed repositories behind the aggregate
// interface the services consume.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		test:     NewTestPostgreSQL(db),
		progress: NewProgressPostgreSQL(db),
		result:   NewResultPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
	}
}

func (r *repository) Test() repositories.TestRepository         { return r.test }
func (r *repository) Progress() repositories.ProgressRepository { return r.progress }
func (r *repository) Result() repositories.ResultRepository     { return r.result }
func (r *repository) User() repositories.UserRepository         { return r.user }
