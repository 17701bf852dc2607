package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/animus-labs/actiontracker/internal/repo"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DB = (*sql.DB)(nil)
	_ DB = (*sql.Tx)(nil)
)

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}

// classify tags constraint violations from either driver with the matching
// repo sentinel while keeping the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", repo.ErrConflict, err)
		case "23503":
			return fmt.Errorf("%w: %w", repo.ErrInvalidReference, err)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", repo.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", repo.ErrInvalidReference, err)
		}
	}
	return err
}

// FaultKind names the constraint class of err for logging.
func FaultKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repo.ErrConflict):
		return "unique_violation"
	case errors.Is(err, repo.ErrInvalidReference):
		return "foreign_key_violation"
	case errors.Is(err, repo.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store_error"
	}
}
