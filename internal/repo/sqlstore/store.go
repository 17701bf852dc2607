package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/animus-labs/actiontracker/internal/repo"
)

// Store implements repo.Store on a single *sql.DB pool.
type Store struct {
	db       *sql.DB
	projects *ProjectStore
	actions  *ActionStore
}

var _ repo.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{
		db:       db,
		projects: NewProjectStore(db),
		actions:  NewActionStore(db),
	}
}

func (s *Store) Projects() repo.ProjectRepository { return s.projects }

func (s *Store) Actions() repo.ActionRepository { return s.actions }

// WithinTx runs fn against a transaction, committing on nil and rolling
// back on error or panic.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteProject deletes dependent actions before the project row so the
// foreign key never blocks the delete. Both statements share one transaction.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.WithinTx(ctx, func(ctx context.Context, tx DB) error {
		if _, err := NewActionStore(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		n, err := NewProjectStore(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
