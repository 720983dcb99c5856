package driver

import (
	"fmt"
	"os"
	"strings"
)

// memoryPath is SQLite's in-memory database name
const memoryPath = ":memory:"

// ValidatePath checks that path can name a database file: it must not be
// empty, contain null bytes or '?', or point at an existing directory. The file
// itself may be missing; SQLite creates it on first connection.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}
	if strings.Contains(path, "?") {
		return fmt.Errorf("%w: path must not contain '?'", ErrInvalidPath)
	}
	if path == memoryPath {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to stat %s: %v", ErrInvalidPath, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
	}
	return nil
}
