package repo

import (
	"context"
	"errors"

	"github.com/animus-labs/actiontracker/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict wraps unique constraint violations.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference wraps foreign key violations.
	ErrInvalidReference = errors.New("invalid reference")
)

// ProjectRepository manages Projects.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.NewProject) (domain.Project, error)
	Get(ctx context.Context, id int64) (domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// ActionRepository manages Actions.
type ActionRepository interface {
	Create(ctx context.Context, action domain.NewAction) (domain.Action, error)
	List(ctx context.Context) ([]domain.Action, error)
	ListByProject(ctx context.Context, projectID int64) ([]domain.Action, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteByProject(ctx context.Context, projectID int64) (int64, error)
}

// Store groups the repositories behind one database handle.
type Store interface {
	Projects() ProjectRepository
	Actions() ActionRepository
	// DeleteProject removes a project and every action referencing it.
	// It returns ErrNotFound when no project row matched.
	DeleteProject(ctx context.Context, id int64) error
}
