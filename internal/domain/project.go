package domain

import "errors"

// Project is a unit of work that owns zero or more Actions.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// ProjectWithActions is the shape returned by a single-project lookup.
type ProjectWithActions struct {
	Project
	Actions []Action `json:"actions"`
}

// NewProject carries the client-supplied fields of a project insert.
type NewProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed,omitempty"`
}

var ErrProjectFieldsRequired = errors.New("project name and description are required")

// Validate checks presence only; values are stored exactly as sent.
func (p NewProject) Validate() error {
	if p.Name == "" || p.Description == "" {
		return ErrProjectFieldsRequired
	}
	return nil
}
