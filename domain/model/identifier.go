package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Character validation constants
const (
	firstDigitChar = '0'
	lastDigitChar  = '9'
	firstLowerChar = 'a'
	lastLowerChar  = 'z'
	firstUpperChar = 'A'
	lastUpperChar  = 'Z'
	underscoreChar = '_'
)

// defaultTableName is used when a file name sanitizes to nothing.
const defaultTableName = "items"

// isIdentifierChar reports whether r may appear in a table name.
func isIdentifierChar(r rune) bool {
	return (r >= firstLowerChar && r <= lastLowerChar) ||
		(r >= firstUpperChar && r <= lastUpperChar) ||
		(r >= firstDigitChar && r <= lastDigitChar) ||
		r == underscoreChar
}

// IsValidIdentifier reports whether name is safe to interpolate into SQL as a
// table name: non-empty, and every character is an ASCII letter, digit or
// underscore. Reserved words are not rejected.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isIdentifierChar(r) {
			return false
		}
	}
	return true
}

// ValidateIdentifier returns ErrInvalidIdentifier when name is not a valid
// table name.
func ValidateIdentifier(name string) error {
	if !IsValidIdentifier(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// SanitizeIdentifier turns an arbitrary string into a valid table name.
// Spaces, dashes and dots become underscores, other invalid characters are
// dropped, and a leading digit gets a "t_" prefix.
func SanitizeIdentifier(name string) string {
	result := strings.TrimSpace(name)
	result = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(result)

	var sanitized strings.Builder
	for _, r := range result {
		if isIdentifierChar(r) {
			sanitized.WriteRune(r)
		}
	}

	out := sanitized.String()
	if out == "" {
		return defaultTableName
	}
	if out[0] >= firstDigitChar && out[0] <= lastDigitChar {
		out = "t_" + out
	}
	return out
}

// TableNameFromPath derives a table name from a file path: the base name
// without compression and format extensions, sanitized.
func TableNameFromPath(path string) string {
	fileName := filepath.Base(path)
	for _, ext := range compressionExtensions {
		if strings.HasSuffix(strings.ToLower(fileName), ext) {
			fileName = fileName[:len(fileName)-len(ext)]
			break
		}
	}
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return SanitizeIdentifier(fileName)
}
