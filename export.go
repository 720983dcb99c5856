package stocksql

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/stocksql/domain/model"
)

// maxSheetNameLength is Excel's limit on worksheet names
const maxSheetNameLength = 31

// tableDump is the full content of one table.
type tableDump struct {
	name    string
	columns []string
	rows    [][]any
}

// Export writes every table whose name contains opts.TableFilter to
// outputDir, one file per table named <table><format ext><compression ext>.
// Each file carries the table's own columns, so tables created by earlier
// schema revisions are exported as they are. The directory is created if
// missing. Export returns the written paths in table creation order.
//
// Example:
//
//	opts := stocksql.NewExportOptions().
//		WithFormat(stocksql.FileTypeXLSX).
//		WithCompression(stocksql.CompressionGZ)
//	paths, err := store.Export(ctx, "./backup", opts)
func (s *Store) Export(ctx context.Context, outputDir string, opts model.ExportOptions) ([]string, error) {
	ec := NewErrorContext("export").WithDetails(outputDir)

	if err := newValidator().validateOutputDirectory(outputDir); err != nil {
		return nil, ec.Error(err)
	}
	if err := opts.Validate(); err != nil {
		return nil, ec.Error(err)
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, ec.Error(fmt.Errorf("failed to create output directory: %w", err))
	}

	conn, err := s.conn(ctx, "export")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tables, err := listTables(ctx, conn, opts.TableFilter)
	if err != nil {
		return nil, ec.Database(err)
	}

	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		if !model.IsValidIdentifier(table) {
			s.logger.WarnContext(ctx, "skipping table with unsafe name", slogTable(table))
			continue
		}

		dump, err := dumpTable(ctx, conn, table)
		if err != nil {
			return paths, NewErrorContext("export").WithTable(table).Database(err)
		}

		outputPath := filepath.Join(outputDir, table+opts.FileExtension())
		if err := writeDumpFile(ctx, outputPath, dump, opts); err != nil {
			return paths, NewErrorContext("export").WithTable(table).WithDetails(outputPath).Error(err)
		}
		s.logger.InfoContext(ctx, "table exported", slogTable(table),
			slog.String("path", outputPath), slog.Int("rows", len(dump.rows)))
		paths = append(paths, outputPath)
	}
	return paths, nil
}

// dumpTable reads every row of table with its declared columns.
func dumpTable(ctx context.Context, q sqlx.QueryerContext, table string) (*tableDump, error) {
	columns, err := tableColumnNames(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}

	rows, err := q.QueryxContext(ctx, "SELECT * FROM "+quoteIdentifier(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dump := &tableDump{name: table, columns: columns}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		dump.rows = append(dump.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dump, nil
}

// writeDumpFile writes dump to path in the requested format and compression.
func writeDumpFile(ctx context.Context, path string, dump *tableDump, opts model.ExportOptions) (err error) {
	writer, cleanup, err := createWriterForFile(path, opts.Compression)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cleanup(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	switch opts.Format {
	case model.FileTypeCSV:
		return writeDelimited(writer, dump, csvDelimiter)
	case model.FileTypeTSV:
		return writeDelimited(writer, dump, tsvDelimiter)
	case model.FileTypeLTSV:
		return writeLTSV(writer, dump)
	case model.FileTypeXLSX:
		return writeXLSX(writer, dump)
	case model.FileTypeParquet:
		return writeParquet(ctx, writer, dump)
	default:
		return fmt.Errorf("%w: unsupported export format %s", ErrValidation, opts.Format)
	}
}

func writeDelimited(w io.Writer, dump *tableDump, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := csvWriter.Write(dump.columns); err != nil {
		return err
	}
	for _, row := range dump.rows {
		if err := csvWriter.Write(stringRow(row)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeLTSV(w io.Writer, dump *tableDump) error {
	for _, row := range dump.rows {
		values := stringRow(row)
		pairs := make([]string, len(dump.columns))
		for i, col := range dump.columns {
			pairs[i] = col + ":" + ltsvEscaper.Replace(values[i])
		}
		if _, err := io.WriteString(w, strings.Join(pairs, "\t")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// ltsvEscaper keeps a value on one field of one line
var ltsvEscaper = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func writeXLSX(w io.Writer, dump *tableDump) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() // Ignore close error
	}()

	sheet := f.GetSheetName(0)
	if len(dump.name) <= maxSheetNameLength {
		if err := f.SetSheetName(sheet, dump.name); err != nil {
			return err
		}
		sheet = dump.name
	}

	header := make([]any, len(dump.columns))
	for i, col := range dump.columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range dump.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = xlsxValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// writeParquet stores every column as a nullable string.
func writeParquet(_ context.Context, w io.Writer, dump *tableDump) error {
	fields := make([]arrow.Field, len(dump.columns))
	for i, col := range dump.columns {
		fields[i] = arrow.Field{Name: col, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, row := range dump.rows {
		for j, v := range row {
			sb, ok := builder.Field(j).(*array.StringBuilder)
			if !ok {
				return fmt.Errorf("unexpected arrow builder for column %s", dump.columns[j])
			}
			if v == nil {
				sb.AppendNull()
				continue
			}
			sb.Append(stringValue(v))
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	// The parquet writer closes its sink; the compressor is closed by the caller.
	fw, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{w}, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	return fw.Close()
}

func stringRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = stringValue(v)
	}
	return out
}

// stringValue renders a SQLite value as text; NULL becomes "".
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// xlsxValue keeps numbers numeric in the spreadsheet.
func xlsxValue(v any) any {
	switch val := v.(type) {
	case int64, float64, bool:
		return val
	default:
		return stringValue(val)
	}
}
