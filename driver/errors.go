package driver

import "errors"

// Predefined errors
var (
	// ErrInvalidPath is returned when the database path is empty or unsafe
	ErrInvalidPath = errors.New("stocksql driver: invalid database path")

	// ErrInvalidBusyTimeout is returned when the busy timeout is negative
	ErrInvalidBusyTimeout = errors.New("stocksql driver: invalid busy timeout")

	// ErrInvalidJournalMode is returned for journal modes other than DELETE and WAL
	ErrInvalidJournalMode = errors.New("stocksql driver: unsupported journal mode")

	// ErrStmtExecContextNotSupported is returned when statement does not support ExecContext
	ErrStmtExecContextNotSupported = errors.New("stocksql driver: statement does not support ExecContext")
)
