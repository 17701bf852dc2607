package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeDevelopment = "development"
	ModeTesting     = "testing"
	ModeProduction  = "production"

	DefaultConfigPath = "database.yaml"
)

// fileEntry is one deployment mode in the YAML config. Zero fields keep
// the built-in default for that mode.
type fileEntry struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

func defaults(mode string) (Config, bool) {
	base := Config{
		PingTimeout:     2 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	switch mode {
	case ModeDevelopment:
		base.Driver = DriverSQLite
		base.URL = "./data/tracker.db3"
	case ModeTesting:
		base.Driver = DriverSQLite
		base.URL = MemoryURL
	case ModeProduction:
		base.Driver = DriverPostgres
		base.URL = os.Getenv("DATABASE_URL")
	default:
		return Config{}, false
	}
	return base, true
}

// fromFile layers the entry for mode over the built-in defaults. A missing
// file is not an error; an unknown mode is, unless the file defines it.
func fromFile(path string, mode string) (Config, error) {
	cfg, known := defaults(mode)

	entries, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	entry, ok := entries[mode]
	if !ok {
		if !known {
			return Config{}, fmt.Errorf("unknown deployment mode %q", mode)
		}
		return cfg, nil
	}
	if !known {
		cfg, _ = defaults(ModeDevelopment)
	}
	return entry.apply(cfg), nil
}

func readFile(path string) (map[string]fileEntry, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries map[string]fileEntry
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

func (e fileEntry) apply(cfg Config) Config {
	if e.Driver != "" {
		cfg.Driver = e.Driver
	}
	if e.URL != "" {
		cfg.URL = e.URL
	}
	if e.PingTimeout != 0 {
		cfg.PingTimeout = e.PingTimeout
	}
	if e.MaxOpenConns != 0 {
		cfg.MaxOpenConns = e.MaxOpenConns
	}
	if e.MaxIdleConns != 0 {
		cfg.MaxIdleConns = e.MaxIdleConns
	}
	if e.ConnMaxLifetime != 0 {
		cfg.ConnMaxLifetime = e.ConnMaxLifetime
	}
	if e.ConnMaxIdleTime != 0 {
		cfg.ConnMaxIdleTime = e.ConnMaxIdleTime
	}
	return cfg
}
