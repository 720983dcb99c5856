package model

import (
	"fmt"
	"strings"
)

// CompressionType represents the compression type
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression (read only)
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionNone:
		return ""
	case CompressionGZ:
		return ExtGZ
	case CompressionBZ2:
		return ExtBZ2
	case CompressionXZ:
		return ExtXZ
	case CompressionZSTD:
		return ExtZSTD
	default:
		return ""
	}
}

// ParseCompressionType parses names such as "gz", "gzip", "zst" or "none".
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "none":
		return CompressionNone, nil
	case "gz", "gzip":
		return CompressionGZ, nil
	case "bz2", "bzip2":
		return CompressionBZ2, nil
	case "xz":
		return CompressionXZ, nil
	case "zst", "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression %q", ErrValidation, s)
	}
}

// ExportOptions configures how item tables are exported to files.
type ExportOptions struct {
	// TableFilter restricts the export to tables whose name contains it
	TableFilter string
	// Format specifies the output file format
	Format FileType
	// Compression specifies the compression type
	Compression CompressionType
}

// NewExportOptions creates new ExportOptions with default values (all tables, CSV format, no compression)
func NewExportOptions() ExportOptions {
	return ExportOptions{
		Format:      FileTypeCSV,
		Compression: CompressionNone,
	}
}

// WithTableFilter sets the table name filter
func (o ExportOptions) WithTableFilter(filter string) ExportOptions {
	o.TableFilter = filter
	return o
}

// WithFormat sets the output format
func (o ExportOptions) WithFormat(format FileType) ExportOptions {
	o.Format = format
	return o
}

// WithCompression sets the compression type
func (o ExportOptions) WithCompression(compression CompressionType) ExportOptions {
	o.Compression = compression
	return o
}

// FileExtension returns the complete file extension including compression
func (o ExportOptions) FileExtension() string {
	return o.Format.Extension() + o.Compression.Extension()
}

// Validate rejects formats and compressions that cannot be written.
func (o ExportOptions) Validate() error {
	if o.Format == FileTypeUnsupported || o.Format.Extension() == "" {
		return fmt.Errorf("%w: unsupported export format", ErrValidation)
	}
	if o.Compression == CompressionBZ2 {
		return fmt.Errorf("%w: bzip2 compression is not supported for writing", ErrValidation)
	}
	return nil
}
