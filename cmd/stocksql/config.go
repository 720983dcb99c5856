package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDirName       = "stocksql"
	databaseFileName = "inventory.db"
	defaultPageSize  = 20
	configEnvVar     = "STOCKSQL_CONFIG"
)

// Config is the content of the YAML configuration file.
//
//	database:
//	  path: /home/me/.config/stocksql/inventory.db
//	  busy_timeout: 5s
//	  journal_mode: WAL
//	log:
//	  level: info
//	  format: text
//	query:
//	  page_size: 20
//	backup:
//	  dir: /var/backups/stocksql
//	  schedule: "@daily"
//	  format: csv
//	  compression: gz
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Query    QueryConfig    `yaml:"query"`
	Backup   BackupConfig   `yaml:"backup"`
}

// DatabaseConfig locates and tunes the SQLite file.
type DatabaseConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	JournalMode string        `yaml:"journal_mode"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	PageSize int `yaml:"page_size"`
}

// BackupConfig holds export defaults of the backup command.
type BackupConfig struct {
	Dir         string `yaml:"dir"`
	Schedule    string `yaml:"schedule"`
	Format      string `yaml:"format"`
	Compression string `yaml:"compression"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Path:        defaultDatabasePath(),
			BusyTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Query: QueryConfig{
			PageSize: defaultPageSize,
		},
		Backup: BackupConfig{
			Dir:         "backup",
			Format:      "csv",
			Compression: "none",
		},
	}
}

// defaultDatabasePath is <user config dir>/stocksql/inventory.db, or
// ./inventory.db when the platform has no such directory.
func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return databaseFileName
	}
	return filepath.Join(dir, appDirName, databaseFileName)
}

// loadConfig reads path over the defaults. An empty path falls back to
// $STOCKSQL_CONFIG; without either the defaults are returned.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := decodeConfig(f, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// decodeConfig overlays the YAML document in r onto cfg.
func decodeConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path cannot be empty")
	}
	if c.Database.BusyTimeout < 0 {
		return errors.New("database.busy_timeout must not be negative")
	}
	if c.Query.PageSize < 1 {
		return errors.New("query.page_size must be positive")
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return level, nil
}

// newLogger builds the slog logger described by c, writing to w.
func (c LogConfig) newLogger(w io.Writer) *slog.Logger {
	level, err := parseLogLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
