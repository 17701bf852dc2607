package auditlog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	ActionProjectCreate = "project.create"
	ActionProjectDelete = "project.delete"
	ActionActionCreate  = "action.create"
	ActionActionDelete  = "action.delete"

	ResourceProject = "project"
	ResourceAction  = "action"

	// AnonymousActor is recorded while the service has no notion of users.
	AnonymousActor = "anonymous"
)

var ErrIntegrityMismatch = errors.New("audit event integrity mismatch")

type Event struct {
	OccurredAt   time.Time
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	IP           net.IP
	UserAgent    string
	Payload      any
}

// StoredEvent is an audit_events row as read back from the store.
type StoredEvent struct {
	ID              int64           `json:"event_id"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Actor           string          `json:"actor"`
	Action          string          `json:"action"`
	ResourceType    string          `json:"resource_type"`
	ResourceID      string          `json:"resource_id"`
	RequestID       string          `json:"request_id,omitempty"`
	IP              string          `json:"ip,omitempty"`
	UserAgent       string          `json:"user_agent,omitempty"`
	Payload         json.RawMessage `json:"payload"`
	IntegritySHA256 string          `json:"integrity_sha256"`
}

type QueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (e Event) Validate() error {
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("actor is required")
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("action is required")
	}
	if strings.TrimSpace(e.ResourceType) == "" {
		return errors.New("resource_type is required")
	}
	if strings.TrimSpace(e.ResourceID) == "" {
		return errors.New("resource_id is required")
	}
	return nil
}

// Insert stores one event and returns its id. occurred_at is kept at
// millisecond precision so the integrity hash can be recomputed from the row.
func Insert(ctx context.Context, q QueryRower, event Event) (int64, error) {
	if q == nil {
		return 0, errors.New("queryer is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.OccurredAt = event.OccurredAt.UTC().Truncate(time.Millisecond)
	if strings.TrimSpace(event.Actor) == "" {
		event.Actor = AnonymousActor
	}
	if err := event.Validate(); err != nil {
		return 0, err
	}

	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	integrity, err := ComputeIntegritySHA256(event, payloadJSON)
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.QueryRowContext(
		ctx,
		`INSERT INTO audit_events (
			occurred_at,
			actor,
			action,
			resource_type,
			resource_id,
			request_id,
			ip,
			user_agent,
			payload,
			integrity_sha256
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING event_id`,
		event.OccurredAt.UnixMilli(),
		strings.TrimSpace(event.Actor),
		strings.TrimSpace(event.Action),
		strings.TrimSpace(event.ResourceType),
		strings.TrimSpace(event.ResourceID),
		nullString(event.RequestID),
		nullString(ipString(event.IP)),
		nullString(event.UserAgent),
		string(payloadJSON),
		integrity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit event: %w", err)
	}
	return id, nil
}

// List returns the newest events first. An empty resourceType matches every
// event; limit <= 0 defaults to 50.
func List(ctx context.Context, q Queryer, resourceType string, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.QueryContext(ctx, `
		SELECT event_id, occurred_at, actor, action, resource_type, resource_id,
		       request_id, ip, user_agent, payload, integrity_sha256
		FROM audit_events
		WHERE ($1 = '' OR resource_type = $1)
		ORDER BY event_id DESC
		LIMIT $2`, strings.TrimSpace(resourceType), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]StoredEvent, 0)
	for rows.Next() {
		var (
			ev                       StoredEvent
			occurredAt               int64
			requestID, ip, userAgent sql.NullString
			payload                  string
		)
		if err := rows.Scan(
			&ev.ID,
			&occurredAt,
			&ev.Actor,
			&ev.Action,
			&ev.ResourceType,
			&ev.ResourceID,
			&requestID,
			&ip,
			&userAgent,
			&payload,
			&ev.IntegritySHA256,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.OccurredAt = time.UnixMilli(occurredAt).UTC()
		ev.RequestID = requestID.String
		ev.IP = ip.String
		ev.UserAgent = userAgent.String
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}

// Verify recomputes the row's integrity hash.
func Verify(ev StoredEvent) error {
	event := Event{
		OccurredAt:   ev.OccurredAt,
		Actor:        ev.Actor,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		RequestID:    ev.RequestID,
		IP:           net.ParseIP(ev.IP),
		UserAgent:    ev.UserAgent,
	}
	sum, err := ComputeIntegritySHA256(event, ev.Payload)
	if err != nil {
		return err
	}
	if sum != ev.IntegritySHA256 {
		return fmt.Errorf("%w: event %d", ErrIntegrityMismatch, ev.ID)
	}
	return nil
}

func ComputeIntegritySHA256(event Event, payloadJSON []byte) (string, error) {
	type integrityInput struct {
		OccurredAt   time.Time       `json:"occurred_at"`
		Actor        string          `json:"actor"`
		Action       string          `json:"action"`
		ResourceType string          `json:"resource_type"`
		ResourceID   string          `json:"resource_id"`
		RequestID    string          `json:"request_id,omitempty"`
		IP           string          `json:"ip,omitempty"`
		UserAgent    string          `json:"user_agent,omitempty"`
		Payload      json.RawMessage `json:"payload"`
	}

	in := integrityInput{
		OccurredAt:   event.OccurredAt.UTC(),
		Actor:        strings.TrimSpace(event.Actor),
		Action:       strings.TrimSpace(event.Action),
		ResourceType: strings.TrimSpace(event.ResourceType),
		ResourceID:   strings.TrimSpace(event.ResourceID),
		RequestID:    strings.TrimSpace(event.RequestID),
		IP:           ipString(event.IP),
		UserAgent:    strings.TrimSpace(event.UserAgent),
		Payload:      payloadJSON,
	}

	blob, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal integrity: %w", err)
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

// Recorder writes events on a best-effort basis: a failed insert is logged
// and never surfaces to the caller.
type Recorder struct {
	db     QueryRower
	logger *slog.Logger
}

func NewRecorder(db QueryRower, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.db == nil {
		return
	}
	if _, err := Insert(ctx, r.db, event); err != nil {
		r.logger.Warn("audit event dropped",
			"action", event.Action,
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

func nullString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
