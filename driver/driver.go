// Package driver provides the connection contract of stocksql.
//
// It implements database/sql/driver interfaces on top of the pure-Go SQLite
// engine (modernc.org/sqlite). Every physical connection opens the same
// on-disk database file and applies the configured pragmas before it is
// handed to database/sql, so callers can acquire and release connections
// per operation without carrying any state between them.
//
// Usage:
//
//	connector, err := driver.NewConnector(driver.Config{Path: "inventory.db"})
//	if err != nil {
//		return err
//	}
//	db := sql.OpenDB(connector)
//
// The driver is also registered as "stocksql", taking the file path as DSN:
//
//	db, err := sql.Open("stocksql", "inventory.db")
package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// DriverName is the name the driver registers with database/sql
const DriverName = "stocksql"

// DefaultBusyTimeout is how long a connection waits on a locked database
// before SQLite reports SQLITE_BUSY.
const DefaultBusyTimeout = 5 * time.Second

// Journal modes accepted by Config.JournalMode
const (
	// JournalModeDelete is SQLite's default rollback journal
	JournalModeDelete = "DELETE"
	// JournalModeWAL enables write-ahead logging
	JournalModeWAL = "WAL"
)

func init() {
	sql.Register(DriverName, NewDriver())
}

// Config holds connection parameters. It is immutable once a Connector has
// been created from it.
type Config struct {
	// Path is the SQLite database file
	Path string
	// BusyTimeout is applied with PRAGMA busy_timeout. Zero disables waiting.
	BusyTimeout time.Duration
	// JournalMode is applied with PRAGMA journal_mode when not empty
	JournalMode string
}

// Driver implements database/sql/driver.Driver interface.
type Driver struct{}

// Connector implements database/sql/driver.Connector interface.
// It opens a new SQLite connection to the configured file on every Connect.
type Connector struct {
	driver *Driver
	config Config
}

// NewDriver creates a new stocksql driver
func NewDriver() *Driver {
	return &Driver{}
}

// Open implements driver.Driver interface
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext interface.
// The DSN is the database file path; default pragmas are used.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(Config{
		Path:        dsn,
		BusyTimeout: DefaultBusyTimeout,
	})
}

// NewConnector validates config and returns a Connector for it
func NewConnector(config Config) (*Connector, error) {
	if err := ValidatePath(config.Path); err != nil {
		return nil, err
	}
	if config.BusyTimeout < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBusyTimeout, config.BusyTimeout)
	}
	mode, err := NormalizeJournalMode(config.JournalMode)
	if err != nil {
		return nil, err
	}
	config.JournalMode = mode

	return &Connector{
		driver: NewDriver(),
		config: config,
	}, nil
}

// Config returns a copy of the connector configuration
func (c *Connector) Config() Config {
	return c.config
}

// Connect implements driver.Connector interface.
// Transactions begin IMMEDIATE so that a writer queues on the busy timeout
// instead of failing when it upgrades a read lock.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	sqliteDriver := &sqlite.Driver{}
	conn, err := sqliteDriver.Open(c.config.Path + "?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", c.config.Path, err)
	}

	for _, pragma := range c.pragmas() {
		if err := executeStatement(ctx, conn, pragma); err != nil {
			_ = conn.Close() // Ignore close error since we're already returning an error
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return conn, nil
}

// Driver implements driver.Connector interface
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// pragmas returns the statements applied to every new connection
func (c *Connector) pragmas() []string {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", c.config.BusyTimeout.Milliseconds()),
	}
	if c.config.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+c.config.JournalMode)
	}
	return pragmas
}

// executeStatement prepares and executes query on a raw driver connection
func executeStatement(ctx context.Context, conn driver.Conn, query string) error {
	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if stmtExecCtx, ok := stmt.(driver.StmtExecContext); ok {
		_, err := stmtExecCtx.ExecContext(ctx, nil)
		return err
	}
	return ErrStmtExecContextNotSupported
}

// NormalizeJournalMode upper-cases mode and checks that it is supported.
// The empty string keeps the database's current mode.
func NormalizeJournalMode(mode string) (string, error) {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	switch mode {
	case "", JournalModeDelete, JournalModeWAL:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidJournalMode, mode)
	}
}
