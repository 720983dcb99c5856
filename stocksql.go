package stocksql

import (
	"context"

	"github.com/nao1215/stocksql/domain/model"
	stocksqldriver "github.com/nao1215/stocksql/driver"
)

const (
	// DriverName is the name the stocksql driver registers with database/sql
	DriverName = stocksqldriver.DriverName
)

// Open opens the store at path with default settings: a 5 second busy
// timeout, no idle connections and a discarding logger. The parent
// directory of path must exist.
//
// Example usage:
//
//	store, err := stocksql.Open(ctx, "inventory.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	records := []map[string]any{
//		{"id": "A1", "name": "Red", "price": 10, "inventory": 5},
//	}
//	if err := store.Write(ctx, "shoes", records, stocksql.MergeOnImport); err != nil {
//		log.Fatal(err)
//	}
func Open(ctx context.Context, path string) (*Store, error) {
	builder, err := NewBuilder().SetDatabasePath(path).Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Open(ctx)
}

type (
	// Item is one row of an item table.
	Item = model.Item
	// ConflictPolicy selects the behaviour of Write for existing ids.
	ConflictPolicy = model.ConflictPolicy
	// QueryParams describes a cross-table query.
	QueryParams = model.QueryParams
	// PaginatedResult is the answer of Query.
	PaginatedResult = model.PaginatedResult
	// ColumnMapping maps header labels of an imported sheet to item fields.
	ColumnMapping = model.ColumnMapping
	// ExportOptions configures Export.
	ExportOptions = model.ExportOptions
	// FileType is an import or export file format.
	FileType = model.FileType
	// CompressionType is an import or export compression.
	CompressionType = model.CompressionType
)

// Conflict policies
const (
	// IgnoreDuplicate leaves an existing row untouched.
	IgnoreDuplicate = model.IgnoreDuplicate
	// MergeOnImport adds the incoming inventory to an existing row.
	MergeOnImport = model.MergeOnImport
)

// File formats
const (
	// FileTypeCSV represents CSV file type
	FileTypeCSV = model.FileTypeCSV
	// FileTypeTSV represents TSV file type
	FileTypeTSV = model.FileTypeTSV
	// FileTypeLTSV represents LTSV file type
	FileTypeLTSV = model.FileTypeLTSV
	// FileTypeXLSX represents Excel XLSX file type
	FileTypeXLSX = model.FileTypeXLSX
	// FileTypeParquet represents Parquet file type
	FileTypeParquet = model.FileTypeParquet
	// FileTypeUnsupported represents unsupported file type
	FileTypeUnsupported = model.FileTypeUnsupported
)

// Compression types
const (
	// CompressionNone represents no compression
	CompressionNone = model.CompressionNone
	// CompressionGZ represents gzip compression
	CompressionGZ = model.CompressionGZ
	// CompressionBZ2 represents bzip2 compression (import only)
	CompressionBZ2 = model.CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ = model.CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD = model.CompressionZSTD
)

// NewExportOptions returns CSV export options without compression for all tables.
func NewExportOptions() ExportOptions {
	return model.NewExportOptions()
}

// PolicyFromImportFlag maps the boolean import switch of a write call to a
// ConflictPolicy: true merges inventory, false ignores duplicates.
func PolicyFromImportFlag(imported bool) ConflictPolicy {
	return model.PolicyFromImportFlag(imported)
}

// IsValidIdentifier reports whether name can be used as a table name.
func IsValidIdentifier(name string) bool {
	return model.IsValidIdentifier(name)
}

// ParseFileType parses a format name such as "csv" or ".xlsx".
func ParseFileType(s string) FileType {
	return model.ParseFileType(s)
}

// ParseCompressionType parses a compression name such as "gz" or "zstd".
func ParseCompressionType(s string) (CompressionType, error) {
	return model.ParseCompressionType(s)
}
