package stocksql

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validator handles validation logic for DBBuilder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validateDatabasePath checks that path names a file whose parent directory
// exists. The file itself is created on first connection.
func (v *validator) validateDatabasePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: database path cannot be empty", ErrValidation)
	}
	if path == ":memory:" {
		// Every operation opens its own connection, so an in-memory
		// database would be empty again on the next call.
		return fmt.Errorf("%w: in-memory databases are not supported, use a file path", ErrValidation)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: database path is a directory: %s", ErrValidation, path)
	}

	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: parent directory does not exist: %s", ErrValidation, parent)
		}
		return fmt.Errorf("%w: failed to stat %s: %w", ErrValidation, parent, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: parent path is not a directory: %s", ErrValidation, parent)
	}
	return nil
}

// validateMaxIdleConns rejects negative pool sizes
func (v *validator) validateMaxIdleConns(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: max idle connections must not be negative, got %d", ErrValidation, n)
	}
	return nil
}

// validateOutputDirectory validates that the output directory can be created/accessed
func (v *validator) validateOutputDirectory(outputDir string) error {
	if strings.TrimSpace(outputDir) == "" {
		return fmt.Errorf("%w: output directory cannot be empty", ErrValidation)
	}

	// Check if directory already exists
	if info, err := os.Stat(outputDir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: output path exists but is not a directory: %s", ErrValidation, outputDir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check output directory: %w", err)
	}

	// Directory doesn't exist, that's fine - it will be created later
	return nil
}
