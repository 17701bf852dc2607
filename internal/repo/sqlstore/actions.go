package sqlstore

import (
	"context"
	"fmt"

	"github.com/animus-labs/actiontracker/internal/domain"
)

const actionColumns = `id, name, description, notes, completed, project_id`

type ActionStore struct {
	db DB
}

func NewActionStore(db DB) *ActionStore {
	if db == nil {
		return nil
	}
	return &ActionStore{db: db}
}

func (s *ActionStore) Create(ctx context.Context, action domain.NewAction) (domain.Action, error) {
	if s == nil || s.db == nil {
		return domain.Action{}, fmt.Errorf("action store not initialized")
	}
	if err := action.Validate(); err != nil {
		return domain.Action{}, err
	}
	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO actions (name, description, notes, completed, project_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+actionColumns,
		action.Name,
		action.Description,
		action.Notes,
		action.Completed,
		action.ProjectID,
	)
	var out domain.Action
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.Notes, &out.Completed, &out.ProjectID); err != nil {
		return domain.Action{}, fmt.Errorf("insert action: %w", classify(handleNotFound(err)))
	}
	return out, nil
}

func (s *ActionStore) List(ctx context.Context) ([]domain.Action, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("action store not initialized")
	}
	return s.query(ctx, "list actions", `SELECT `+actionColumns+` FROM actions ORDER BY id`)
}

func (s *ActionStore) ListByProject(ctx context.Context, projectID int64) ([]domain.Action, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("action store not initialized")
	}
	return s.query(ctx, "list project actions",
		`SELECT `+actionColumns+` FROM actions WHERE project_id = $1 ORDER BY id`, projectID)
}

func (s *ActionStore) Delete(ctx context.Context, id int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("action store not initialized")
	}
	return s.exec(ctx, "delete action", `DELETE FROM actions WHERE id = $1`, id)
}

func (s *ActionStore) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("action store not initialized")
	}
	return s.exec(ctx, "delete project actions", `DELETE FROM actions WHERE project_id = $1`, projectID)
}

func (s *ActionStore) query(ctx context.Context, op string, query string, args ...any) ([]domain.Action, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	actions := make([]domain.Action, 0)
	for rows.Next() {
		var a domain.Action
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Notes, &a.Completed, &a.ProjectID); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return actions, nil
}

func (s *ActionStore) exec(ctx context.Context, op string, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
