package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "database.yaml")
	body := "development:\n  driver: sqlite\n  url: " + filepath.Join(dir, "tracker.db3") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath
}

func TestMigrate_UpStatusDown(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := writeSQLiteConfig(t)

	out, err := runCLI(t, "migrate", "up", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 3 migration(s)")

	out, err = runCLI(t, "migrate", "up", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migration(s)")

	out, err = runCLI(t, "migrate", "status", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "0001_projects.sql")
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")

	out, err = runCLI(t, "migrate", "down", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "reverted 1 migration(s)")

	out, err = runCLI(t, "migrate", "status", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, err = runCLI(t, "migrate", "down", "--steps", "0", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "reverted 2 migration(s)")
}

func TestMigrate_RejectsInMemoryMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := runCLI(t, "migrate", "up", "--env", "testing", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory")
}

func TestMigrate_UnknownMode(t *testing.T) {
	_, err := runCLI(t, "migrate", "status", "--env", "staging", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMigrate_DownRejectsNegativeSteps(t *testing.T) {
	_, err := runCLI(t, "migrate", "down", "--steps", "-1", "--config", writeSQLiteConfig(t))
	require.Error(t, err)
}
