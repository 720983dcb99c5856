package stocksql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/stocksql/driver"
)

// DBBuilder configures and opens a Store.
// Use NewBuilder to create a new instance, then chain method calls to configure it.
//
// The typical usage pattern is:
//
//	builder := stocksql.NewBuilder().SetDatabasePath("inventory.db")
//	validatedBuilder, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	store, err := validatedBuilder.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
type DBBuilder struct {
	// path is the SQLite database file
	path string
	// busyTimeout is how long a connection waits on a locked database
	busyTimeout time.Duration
	// journalMode is applied to every connection when not empty
	journalMode string
	// maxIdleConns is the number of connections kept open between operations
	maxIdleConns int
	// logger receives structured logs; nil means discard
	logger *slog.Logger
	// connector is set by Build
	connector *driver.Connector
}

// NewBuilder creates a new builder with default settings: a 5 second busy
// timeout, the database's current journal mode, no idle connections and a
// discarding logger.
func NewBuilder() *DBBuilder {
	return &DBBuilder{
		busyTimeout:  driver.DefaultBusyTimeout,
		maxIdleConns: 0,
	}
}

// SetDatabasePath sets the SQLite database file. The parent directory must
// exist; the file is created on first use.
//
// Returns the builder for method chaining.
func (b *DBBuilder) SetDatabasePath(path string) *DBBuilder {
	b.path = path
	return b
}

// SetBusyTimeout sets how long a connection waits for a competing writer
// before failing with "database is locked".
//
// Returns the builder for method chaining.
func (b *DBBuilder) SetBusyTimeout(timeout time.Duration) *DBBuilder {
	b.busyTimeout = timeout
	return b
}

// SetJournalMode sets the SQLite journal mode ("DELETE" or "WAL").
//
// Returns the builder for method chaining.
func (b *DBBuilder) SetJournalMode(mode string) *DBBuilder {
	b.journalMode = mode
	return b
}

// SetMaxIdleConns sets how many connections stay open between operations.
// The default of zero makes every operation open and release its own
// connection.
//
// Returns the builder for method chaining.
func (b *DBBuilder) SetMaxIdleConns(n int) *DBBuilder {
	b.maxIdleConns = n
	return b
}

// SetLogger sets the structured logger used by the store.
//
// Returns the builder for method chaining.
func (b *DBBuilder) SetLogger(logger *slog.Logger) *DBBuilder {
	b.logger = logger
	return b
}

// Build validates the configuration and prepares the builder for opening a
// store. This method must be called before Open().
//
// Returns the same builder instance for method chaining, or an error if validation fails.
func (b *DBBuilder) Build(_ context.Context) (*DBBuilder, error) {
	v := newValidator()
	if err := v.validateDatabasePath(b.path); err != nil {
		return nil, err
	}
	if err := v.validateMaxIdleConns(b.maxIdleConns); err != nil {
		return nil, err
	}

	connector, err := driver.NewConnector(driver.Config{
		Path:        b.path,
		BusyTimeout: b.busyTimeout,
		JournalMode: b.journalMode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b.connector = connector
	return b, nil
}

// Open creates the store. It verifies that the database file can be opened
// and leaves no connection behind unless SetMaxIdleConns asked for it.
func (b *DBBuilder) Open(ctx context.Context) (*Store, error) {
	if b.connector == nil {
		return nil, errors.New("stocksql: builder is not validated, did you call Build()?")
	}

	sqlDB := sql.OpenDB(b.connector)
	sqlDB.SetMaxIdleConns(b.maxIdleConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database: %w", closeErr))
		}
		return nil, NewErrorContext("open").WithDetails(b.path).Database(err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		db:     sqlx.NewDb(sqlDB, "sqlite"),
		path:   b.path,
		logger: logger,
	}, nil
}
