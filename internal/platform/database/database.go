package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/animus-labs/actiontracker/internal/platform/env"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	MemoryURL = ":memory:"
)

type Config struct {
	Driver          string
	URL             string
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ConfigFromEnv resolves the store config for the deployment mode named by
// TRACKER_ENV from the YAML file at TRACKER_DB_CONFIG, then applies the
// DATABASE_* overrides.
func ConfigFromEnv() (Config, error) {
	mode := env.String("TRACKER_ENV", ModeDevelopment)
	path := env.String("TRACKER_DB_CONFIG", DefaultConfigPath)
	return Load(path, mode)
}

// Load is ConfigFromEnv with an explicit file path and mode.
func Load(path string, mode string) (Config, error) {
	cfg, err := fromFile(path, mode)
	if err != nil {
		return Config{}, err
	}
	cfg, err = applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg Config) (Config, error) {
	var err error
	cfg.Driver = env.String("DATABASE_DRIVER", cfg.Driver)
	cfg.URL = env.String("DATABASE_URL", cfg.URL)

	if cfg.PingTimeout, err = env.Duration("DATABASE_PING_TIMEOUT", cfg.PingTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxOpenConns, err = env.Int("DATABASE_MAX_OPEN_CONNS", cfg.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.MaxIdleConns, err = env.Int("DATABASE_MAX_IDLE_CONNS", cfg.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if cfg.ConnMaxLifetime, err = env.Duration("DATABASE_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if cfg.ConnMaxIdleTime, err = env.Duration("DATABASE_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	case "":
		return errors.New("DATABASE_DRIVER is required")
	default:
		return fmt.Errorf("DATABASE_DRIVER %q is not supported (want %s or %s)", c.Driver, DriverPostgres, DriverSQLite)
	}
	if c.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("DATABASE_PING_TIMEOUT must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("DATABASE_MAX_OPEN_CONNS must be >= 1")
	}
	if c.MaxIdleConns < 0 {
		return errors.New("DATABASE_MAX_IDLE_CONNS must be >= 0")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("DATABASE_MAX_IDLE_CONNS must be <= DATABASE_MAX_OPEN_CONNS")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("DATABASE_CONN_MAX_LIFETIME must be >= 0")
	}
	if c.ConnMaxIdleTime < 0 {
		return errors.New("DATABASE_CONN_MAX_IDLE_TIME must be >= 0")
	}
	return nil
}

// InMemory reports whether the config points at a private SQLite memory
// database, which lives only as long as its single connection.
func (c Config) InMemory() bool {
	return c.Driver == DriverSQLite && strings.HasPrefix(c.URL, MemoryURL)
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if cfg.Driver == DriverSQLite {
		if !cfg.InMemory() {
			if err := os.MkdirAll(filepath.Dir(sqlitePath(cfg.URL)), 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		dsn = sqliteDSN(cfg.URL)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if cfg.InMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return db, nil
}

// sqliteDSN turns on foreign keys and a busy timeout for every pooled
// connection.
func sqliteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func sqlitePath(url string) string {
	p := strings.TrimPrefix(url, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}
