package sqlstore

import (
	"context"
	"fmt"

	"github.com/animus-labs/actiontracker/internal/domain"
)

type ProjectStore struct {
	db DB
}

func NewProjectStore(db DB) *ProjectStore {
	if db == nil {
		return nil
	}
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Create(ctx context.Context, project domain.NewProject) (domain.Project, error) {
	if s == nil || s.db == nil {
		return domain.Project{}, fmt.Errorf("project store not initialized")
	}
	if err := project.Validate(); err != nil {
		return domain.Project{}, err
	}
	var out domain.Project
	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO projects (name, description, completed)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, description, completed`,
		project.Name,
		project.Description,
		project.Completed,
	)
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.Completed); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", classify(handleNotFound(err)))
	}
	return out, nil
}

func (s *ProjectStore) Get(ctx context.Context, id int64) (domain.Project, error) {
	if s == nil || s.db == nil {
		return domain.Project{}, fmt.Errorf("project store not initialized")
	}
	var project domain.Project
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, description, completed
		 FROM projects
		 WHERE id = $1`,
		id,
	)
	if err := row.Scan(&project.ID, &project.Name, &project.Description, &project.Completed); err != nil {
		return domain.Project{}, handleNotFound(err)
	}
	return project, nil
}

func (s *ProjectStore) List(ctx context.Context) ([]domain.Project, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("project store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, completed FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Completed); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Delete removes only the project row and reports how many rows went away.
func (s *ProjectStore) Delete(ctx context.Context, id int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("project store not initialized")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete project: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete project: %w", err)
	}
	return n, nil
}
