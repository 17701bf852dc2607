package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectForDriver maps a database/sql driver name to its script directory.
func DialectForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

type Migration struct {
	Name string
	Up   string
	Down string
}

type Status struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Load reads every script of the dialect, sorted by file name.
func Load(migrationFS fs.FS, dialect Dialect) ([]Migration, error) {
	root := string(dialect)
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(migrationFS, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		up, down := splitSections(string(content))
		if strings.TrimSpace(up) == "" {
			return nil, fmt.Errorf("migration %s has no up section", name)
		}
		out = append(out, Migration{Name: name, Up: up, Down: down})
	}
	return out, nil
}

func splitSections(content string) (string, string) {
	upIdx := strings.Index(content, upMarker)
	downIdx := strings.Index(content, downMarker)
	switch {
	case upIdx == -1 && downIdx == -1:
		return content, ""
	case upIdx == -1:
		return content[:downIdx], content[downIdx+len(downMarker):]
	case downIdx == -1:
		return content[upIdx+len(upMarker):], ""
	case downIdx < upIdx:
		return content[upIdx+len(upMarker):], content[downIdx+len(downMarker) : upIdx]
	default:
		return content[upIdx+len(upMarker) : downIdx], content[downIdx+len(downMarker):]
	}
}

// statements splits a script on semicolons that end a line. Scripts never
// carry semicolons inside literals.
func statements(script string) []string {
	var out []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Migrator applies and reverts the embedded scripts of one dialect.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

func New(db *sql.DB, dialect Dialect) (*Migrator, error) {
	return NewFromFS(db, FS, dialect)
}

func NewFromFS(db *sql.DB, migrationFS fs.FS, dialect Dialect) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	migrations, err := Load(migrationFS, dialect)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: migrations}, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name, applied_at FROM `+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			name      string
			appliedAt int64
		)
		if err := rows.Scan(&name, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		out[name] = time.UnixMilli(appliedAt).UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return out, nil
}

// Up applies every pending script in order and returns their names.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, mig := range m.migrations {
		if _, ok := done[mig.Name]; ok {
			continue
		}
		err := m.inTx(ctx, mig.Up, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO `+migrationTable+` (name, applied_at) VALUES ($1, $2)`,
				mig.Name,
				time.Now().UTC().UnixMilli(),
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", mig.Name, err)
		}
		applied = append(applied, mig.Name)
	}
	return applied, nil
}

// Down reverts the latest steps applied scripts, newest first. steps <= 0
// reverts everything.
func (m *Migrator) Down(ctx context.Context, steps int) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var reverted []string
	for i := len(m.migrations) - 1; i >= 0; i-- {
		if steps > 0 && len(reverted) >= steps {
			break
		}
		mig := m.migrations[i]
		if _, ok := done[mig.Name]; !ok {
			continue
		}
		err := m.inTx(ctx, mig.Down, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM `+migrationTable+` WHERE name = $1`, mig.Name)
			return err
		})
		if err != nil {
			return reverted, fmt.Errorf("revert migration %s: %w", mig.Name, err)
		}
		reverted = append(reverted, mig.Name)
	}
	return reverted, nil
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		at, ok := done[mig.Name]
		out = append(out, Status{Name: mig.Name, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

func (m *Migrator) inTx(ctx context.Context, script string, record func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, stmt := range statements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := record(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
