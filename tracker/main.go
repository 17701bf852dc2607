package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/animus-labs/actiontracker/internal/migrations"
	"github.com/animus-labs/actiontracker/internal/platform/auditlog"
	"github.com/animus-labs/actiontracker/internal/platform/database"
	"github.com/animus-labs/actiontracker/internal/platform/env"
	"github.com/animus-labs/actiontracker/internal/platform/httpserver"
	"github.com/animus-labs/actiontracker/internal/repo/sqlstore"
)

const serviceName = "tracker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, err := env.Int("PORT", 5000)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	addr := env.String("TRACKER_HTTP_ADDR", ":"+strconv.Itoa(port))
	shutdownTimeout, err := env.Duration("TRACKER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "driver", dbCfg.Driver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// A private memory database starts empty and cannot be reached by
	// trackerctl, so it is migrated here.
	if dbCfg.InMemory() {
		if err := migrateInMemory(ctx, logger, db); err != nil {
			logger.Error("migrate in-memory database", "error", err)
			os.Exit(1)
		}
	}

	store := sqlstore.New(db)

	checkName := "postgres"
	if dbCfg.Driver == database.DriverSQLite {
		checkName = "sqlite"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc(
		"GET /readyz",
		httpserver.ReadyzWithChecks(
			serviceName,
			httpserver.ReadinessCheck{
				Name:    checkName,
				Timeout: 750 * time.Millisecond,
				Check:   store.Ping,
			},
		),
	)

	api := newTrackerAPI(logger, store, auditlog.NewRecorder(db, logger))
	api.register(mux)

	opts := httpserver.Options{
		AllowedOrigins: env.StringList("TRACKER_CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	cfg := httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, serviceName, opts, mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func migrateInMemory(ctx context.Context, logger *slog.Logger, db *sql.DB) error {
	m, err := migrations.New(db, migrations.DialectSQLite)
	if err != nil {
		return err
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return err
	}
	logger.Info("in-memory database migrated", "applied", len(applied))
	return nil
}
