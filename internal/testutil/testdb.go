package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/animus-labs/actiontracker/internal/migrations"
	"github.com/animus-labs/actiontracker/internal/platform/database"
)

// NewTestDB opens a private in-memory SQLite database with foreign keys on
// and every migration applied. It is closed when the test completes.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Driver:       database.DriverSQLite,
		URL:          database.MemoryURL,
		PingTimeout:  2 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	migrator, err := migrations.New(db, migrations.DialectSQLite)
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if _, err := migrator.Up(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
