package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Action is a task belonging to exactly one Project.
type Action struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Completed   bool   `json:"completed"`
	ProjectID   int64  `json:"project_id"`
}

type NewAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Completed   bool   `json:"completed,omitempty"`
	ProjectID   int64  `json:"project_id"`
}

var ErrActionFieldsRequired = errors.New("action name, description, notes and project id are required")

// Validate only checks presence. Whether ProjectID references a real
// project is left to the store's foreign key.
func (a NewAction) Validate() error {
	if a.Name == "" || a.Description == "" || a.Notes == "" || a.ProjectID == 0 {
		return ErrActionFieldsRequired
	}
	return nil
}

// UnmarshalJSON accepts project_id as a JSON number or a numeric string.
// An empty string or null leaves it unset. Unknown fields are rejected.
func (a *NewAction) UnmarshalJSON(data []byte) error {
	type plain NewAction
	var raw struct {
		plain
		ProjectID json.RawMessage `json:"project_id"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	id, err := parseProjectID(raw.ProjectID)
	if err != nil {
		return err
	}
	*a = NewAction(raw.plain)
	a.ProjectID = id
	return nil
}

func parseProjectID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("project_id %q is not an integer", s)
		}
		return id, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("project_id: %w", err)
	}
	return id, nil
}
