package stocksql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/stocksql/domain/model"
)

// ImportOptions configures ImportFile and ImportReader.
type ImportOptions struct {
	// Table is the destination table. ImportFile derives it from the file
	// name when empty.
	Table string
	// Mapping names the header label of each item field. When zero, labels
	// equal to the field names (ignoring case) are used.
	Mapping model.ColumnMapping
	// Policy decides what happens to rows whose id already exists.
	Policy model.ConflictPolicy
}

// ImportResult summarizes a finished import.
type ImportResult struct {
	// Table is the table the rows were written to.
	Table string `json:"table"`
	// Rows is the number of data rows read from the source.
	Rows int `json:"rows"`
}

// ImportFile reads a CSV, TSV, LTSV, XLSX or Parquet file, optionally
// compressed with gzip, bzip2, xz or zstd, and writes its rows to a table
// with the same semantics as Write. For XLSX only the first sheet is read.
func (s *Store) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	ec := NewErrorContext("import").WithDetails(path)

	fileType, compression := model.DetectFileType(path)
	if fileType == model.FileTypeUnsupported {
		return nil, ec.Error(fmt.Errorf("%w: unsupported file type", ErrValidation))
	}
	if opts.Table == "" {
		opts.Table = model.TableNameFromPath(path)
	}

	f, err := os.Open(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, ec.Error(err)
	}
	defer f.Close()

	reader, cleanup, err := newCompressionHandler(compression).createReader(f)
	if err != nil {
		return nil, ec.Error(err)
	}
	defer func() {
		_ = cleanup() // Ignore close error of a read-only stream
	}()

	return s.importFrom(ctx, reader, fileType, filepath.Base(path), opts)
}

// ImportReader is ImportFile for an uncompressed in-memory source.
// opts.Table is required.
func (s *Store) ImportReader(ctx context.Context, r io.Reader, fileType model.FileType, opts ImportOptions) (*ImportResult, error) {
	if r == nil {
		return nil, NewErrorContext("import").Error(fmt.Errorf("%w: reader cannot be nil", ErrValidation))
	}
	if fileType == model.FileTypeUnsupported {
		return nil, NewErrorContext("import").Error(fmt.Errorf("%w: file type must be specified for reader input", ErrValidation))
	}
	return s.importFrom(ctx, r, fileType, opts.Table, opts)
}

func (s *Store) importFrom(ctx context.Context, r io.Reader, fileType model.FileType, source string, opts ImportOptions) (*ImportResult, error) {
	ec := NewErrorContext("import").WithTable(opts.Table).WithDetails(source)

	if err := model.ValidateIdentifier(opts.Table); err != nil {
		return nil, ec.Error(err)
	}

	sheet, err := newSheetParser(fileType, source).parse(ctx, r)
	if err != nil {
		return nil, ec.Error(err)
	}

	records, err := sheetPayloads(sheet, opts.Mapping)
	if err != nil {
		return nil, ec.Error(err)
	}

	if err := s.Write(ctx, opts.Table, records, opts.Policy); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "import finished",
		slogTable(opts.Table),
		slog.String("source", source),
		slog.Int("rows", len(records)),
		slog.String("policy", opts.Policy.String()))

	return &ImportResult{Table: opts.Table, Rows: len(records)}, nil
}

// sheetPayloads converts sheet rows into Write payloads through mapping.
func sheetPayloads(sheet *model.Sheet, mapping model.ColumnMapping) ([]map[string]any, error) {
	if mapping.IsZero() {
		mapping = model.InferColumnMapping(sheet.Header())
	}
	index, err := mapping.Resolve(sheet.Header())
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(sheet.Records()))
	for i, row := range sheet.Records() {
		payload, err := index.Payload(i, row)
		if err != nil {
			return nil, err
		}
		records = append(records, payload)
	}
	return records, nil
}
