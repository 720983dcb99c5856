package driver

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDriver(t *testing.T) {
	t.Parallel()

	if d := NewDriver(); d == nil {
		t.Error("NewDriver() returned nil")
	}
}

func TestNewConnector(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name     string
		config   Config
		expected error
	}{
		{
			name:   "Valid new file",
			config: Config{Path: filepath.Join(dir, "inventory.db")},
		},
		{
			name:   "In-memory database",
			config: Config{Path: ":memory:"},
		},
		{
			name:     "Empty path",
			config:   Config{Path: ""},
			expected: ErrInvalidPath,
		},
		{
			name:     "Directory path",
			config:   Config{Path: dir},
			expected: ErrInvalidPath,
		},
		{
			name:     "Negative busy timeout",
			config:   Config{Path: filepath.Join(dir, "a.db"), BusyTimeout: -time.Second},
			expected: ErrInvalidBusyTimeout,
		},
		{
			name:     "Unknown journal mode",
			config:   Config{Path: filepath.Join(dir, "b.db"), JournalMode: "memory"},
			expected: ErrInvalidJournalMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			connector, err := NewConnector(tt.config)
			if tt.expected != nil {
				if !errors.Is(err, tt.expected) {
					t.Errorf("NewConnector() error = %v, want %v", err, tt.expected)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConnector() unexpected error: %v", err)
			}
			if connector.Driver() == nil {
				t.Error("Driver() returned nil")
			}
		})
	}
}

func TestConnector_Connect_AppliesPragmas(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "inventory.db")
	connector, err := NewConnector(Config{
		Path:        path,
		BusyTimeout: 1500 * time.Millisecond,
		JournalMode: "wal",
	})
	if err != nil {
		t.Fatalf("NewConnector() error: %v", err)
	}
	if got := connector.Config().JournalMode; got != JournalModeWAL {
		t.Errorf("journal mode = %q, want %q", got, JournalModeWAL)
	}

	db := sql.OpenDB(connector)
	defer db.Close()

	ctx := context.Background()
	var timeout int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 1500 {
		t.Errorf("busy_timeout = %d, want 1500", timeout)
	}

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, JournalModeWAL) {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestConnector_SharesFileAcrossConnections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "inventory.db")
	connector, err := NewConnector(Config{Path: path})
	if err != nil {
		t.Fatalf("NewConnector() error: %v", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(0)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE shoes (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	// A fresh connection must see the table created by the previous one.
	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'").Scan(&name)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if name != "shoes" {
		t.Errorf("table name = %q, want shoes", name)
	}
}

func TestRegisteredDriver(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "inventory.db")
	db, err := sql.Open(DriverName, path)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestNormalizeJournalMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: ""},
		{input: "wal", want: JournalModeWAL},
		{input: " Delete ", want: JournalModeDelete},
		{input: "truncate", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeJournalMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeJournalMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeJournalMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
