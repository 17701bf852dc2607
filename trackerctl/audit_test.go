package main

import (
	"context"
	"testing"

	"github.com/animus-labs/actiontracker/internal/platform/auditlog"
	"github.com/animus-labs/actiontracker/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAuditEvents(t *testing.T, cfgPath string) {
	t.Helper()
	cfg, err := database.Load(cfgPath, database.ModeDevelopment)
	require.NoError(t, err)
	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	_, err = auditlog.Insert(ctx, db, auditlog.Event{
		Action:       auditlog.ActionProjectCreate,
		ResourceType: auditlog.ResourceProject,
		ResourceID:   "1",
		RequestID:    "req-seed",
	})
	require.NoError(t, err)
	_, err = auditlog.Insert(ctx, db, auditlog.Event{
		Action:       auditlog.ActionActionCreate,
		ResourceType: auditlog.ResourceAction,
		ResourceID:   "2",
	})
	require.NoError(t, err)
}

func TestAudit_ListAndVerify(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := writeSQLiteConfig(t)

	_, err := runCLI(t, "migrate", "up", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	seedAuditEvents(t, cfg)

	out, err := runCLI(t, "audit", "list", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "project.create")
	assert.Contains(t, out, "project/1")
	assert.Contains(t, out, "req-seed")
	assert.Contains(t, out, "action/2")

	out, err = runCLI(t, "audit", "list", "--resource-type", "action", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "action/2")
	assert.NotContains(t, out, "project/1")

	out, err = runCLI(t, "audit", "verify", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "verified 2 event(s), 0 mismatch(es)")
}

func TestAudit_VerifyReportsTampering(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := writeSQLiteConfig(t)

	_, err := runCLI(t, "migrate", "up", "--env", "development", "--config", cfg)
	require.NoError(t, err)
	seedAuditEvents(t, cfg)

	dbCfg, err := database.Load(cfg, database.ModeDevelopment)
	require.NoError(t, err)
	db, err := database.Open(context.Background(), dbCfg)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE audit_events SET actor = 'mallory' WHERE resource_id = '1'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCLI(t, "audit", "verify", "--env", "development", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, out, "1 mismatch(es)")
}
