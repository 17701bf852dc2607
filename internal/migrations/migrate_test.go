package migrations

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestDialectForDriver(t *testing.T) {
	d, err := DialectForDriver("pgx")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = DialectForDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = DialectForDriver("mysql")
	assert.Error(t, err)
}

func TestLoad_BothDialectsShipSameScripts(t *testing.T) {
	pg, err := Load(FS, DialectPostgres)
	require.NoError(t, err)
	lite, err := Load(FS, DialectSQLite)
	require.NoError(t, err)

	require.Len(t, pg, 3)
	require.Len(t, lite, 3)
	for i := range pg {
		assert.Equal(t, pg[i].Name, lite[i].Name)
		assert.NotEmpty(t, pg[i].Down, "postgres %s has no down section", pg[i].Name)
		assert.NotEmpty(t, lite[i].Down, "sqlite %s has no down section", lite[i].Name)
	}
	assert.Equal(t, "0001_projects.sql", pg[0].Name)
	assert.Equal(t, "0002_actions.sql", pg[1].Name)
	assert.Equal(t, "0003_audit_events.sql", pg[2].Name)
}

func TestSplitSections(t *testing.T) {
	up, down := splitSections("-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT);"}, statements(up))
	assert.Equal(t, []string{"DROP TABLE a;"}, statements(down))

	up, down = splitSections("CREATE TABLE b (id INT);")
	assert.Equal(t, []string{"CREATE TABLE b (id INT);"}, statements(up))
	assert.Empty(t, statements(down))
}

func TestStatements_MultiLine(t *testing.T) {
	got := statements(`
-- comment
CREATE TABLE a (
    id INT
);
CREATE INDEX a_idx ON a (id);
`)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "CREATE TABLE a (")
	assert.Equal(t, "CREATE INDEX a_idx ON a (id);", got[1])
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	m, err := New(db, DialectSQLite)
	require.NoError(t, err)

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_projects.sql", "0002_actions.sql", "0003_audit_events.sql"}, applied)
	assert.True(t, tableExists(t, db, "projects"))
	assert.True(t, tableExists(t, db, "actions"))
	assert.True(t, tableExists(t, db, "audit_events"))

	applied, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrator_DownRevertsNewestFirst(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	m, err := New(db, DialectSQLite)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	reverted, err := m.Down(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"0003_audit_events.sql", "0002_actions.sql"}, reverted)
	assert.False(t, tableExists(t, db, "audit_events"))
	assert.False(t, tableExists(t, db, "actions"))
	assert.True(t, tableExists(t, db, "projects"))

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 3)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)
	assert.False(t, status[2].Applied)

	reverted, err = m.Down(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_projects.sql"}, reverted)
	assert.False(t, tableExists(t, db, "projects"))
}

func TestMigrator_FailedScriptRollsBack(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"sqlite/0001_good.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE good (id INTEGER);\n-- +migrate Down\nDROP TABLE good;\n")},
		"sqlite/0002_bad.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE partial (id INTEGER);\nNOT VALID SQL;\n")},
	}
	m, err := NewFromFS(db, fsys, DialectSQLite)
	require.NoError(t, err)

	applied, err := m.Up(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"0001_good.sql"}, applied)
	assert.True(t, tableExists(t, db, "good"))
	assert.False(t, tableExists(t, db, "partial"))

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[1].Applied)
}
