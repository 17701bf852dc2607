package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/animus-labs/actiontracker/internal/migrations"
	"github.com/animus-labs/actiontracker/internal/platform/database"
	"github.com/animus-labs/actiontracker/internal/platform/env"
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	Mode       string
	ConfigPath string
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "trackerctl",
		Short:         "Operator tooling for the tracker service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Mode, "env", env.String("TRACKER_ENV", database.ModeDevelopment), "deployment mode selecting the store config (development|testing|production)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", env.String("TRACKER_DB_CONFIG", database.DefaultConfigPath), "path to the YAML store config")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	return cmd
}

// openDB resolves and opens the store for the selected mode. In-memory
// stores are rejected: they vanish with this process.
func (o *rootOptions) openDB(ctx context.Context) (*sql.DB, database.Config, error) {
	cfg, err := database.Load(o.ConfigPath, o.Mode)
	if err != nil {
		return nil, cfg, fmt.Errorf("load database config: %w", err)
	}
	if cfg.InMemory() {
		return nil, cfg, fmt.Errorf("mode %q uses an in-memory database; nothing to operate on", o.Mode)
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("open database: %w", err)
	}
	return db, cfg, nil
}

// openMigrator returns a migrator bound to the selected store. The caller
// closes the returned db.
func (o *rootOptions) openMigrator(ctx context.Context) (*migrations.Migrator, *sql.DB, error) {
	db, cfg, err := o.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	dialect, err := migrations.DialectForDriver(cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	m, err := migrations.New(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	o.logger.Info("database selected", "mode", o.Mode, "driver", cfg.Driver)
	return m, db, nil
}
