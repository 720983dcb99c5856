package stocksql

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/stocksql/domain/model"
)

const (
	csvDelimiter = ','
	tsvDelimiter = '\t'
)

// sheetParser reads a whole import source into a header and string rows.
type sheetParser struct {
	fileType model.FileType
	name     string
}

func newSheetParser(fileType model.FileType, name string) *sheetParser {
	return &sheetParser{fileType: fileType, name: name}
}

// parse reads an uncompressed source.
func (p *sheetParser) parse(ctx context.Context, reader io.Reader) (*model.Sheet, error) {
	switch p.fileType {
	case model.FileTypeCSV:
		return p.parseDelimited(reader, csvDelimiter)
	case model.FileTypeTSV:
		return p.parseDelimited(reader, tsvDelimiter)
	case model.FileTypeLTSV:
		return p.parseLTSV(reader)
	case model.FileTypeXLSX:
		return p.parseXLSX(reader)
	case model.FileTypeParquet:
		return p.parseParquet(ctx, reader)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", ErrValidation, p.fileType)
	}
}

// parseDelimited parses CSV or TSV data with the given delimiter
func (p *sheetParser) parseDelimited(reader io.Reader, delimiter rune) (*model.Sheet, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	if delimiter == tsvDelimiter {
		csvReader.LazyQuotes = true
	}

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", p.fileType, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty %s data", p.fileType)
	}
	return p.sheetFromRows(rows), nil
}

// parseLTSV parses label:value lines. The header lists labels in order of
// first appearance.
func (p *sheetParser) parseLTSV(reader io.Reader) (*model.Sheet, error) {
	var (
		labels  []string
		seen    = map[string]int{}
		entries []map[string]string
	)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry := make(map[string]string)
		for _, pair := range strings.Split(line, "\t") {
			kv := strings.SplitN(pair, ":", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			entry[key] = strings.TrimSpace(kv[1])
			if _, ok := seen[key]; !ok {
				seen[key] = len(labels)
				labels = append(labels, key)
			}
		}
		if len(entry) > 0 {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ltsv data: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("no valid records found in ltsv data")
	}

	records := make([]model.Record, 0, len(entries))
	for _, entry := range entries {
		row := make(model.Record, len(labels))
		for i, key := range labels {
			row[i] = entry[key]
		}
		records = append(records, row)
	}
	return model.NewSheet(p.name, model.NewHeader(labels), records), nil
}

// parseXLSX reads the first sheet of a workbook
func (p *sheetParser) parseXLSX(reader io.Reader) (*model.Sheet, error) {
	xlsxFile, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer func() {
		_ = xlsxFile.Close() // Ignore close error
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, errors.New("no sheets found in XLSX file")
	}

	sheetName := sheetNames[0]
	rows, err := xlsxFile.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	// Skip leading empty rows
	for len(rows) > 0 && len(rows[0]) == 0 {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty in XLSX file", sheetName)
	}
	return p.sheetFromRows(rows), nil
}

// parseParquet reads every row group of a Parquet file
func (p *sheetParser) parseParquet(ctx context.Context, reader io.Reader) (*model.Sheet, error) {
	// Parquet requires random access
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty parquet file")
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	labels := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		labels[i] = field.Name
	}

	tableReader := array.NewTableReader(table, 0)
	defer tableReader.Release()

	var records []model.Record
	for tableReader.Next() {
		batch := tableReader.Record()
		for i := range int(batch.NumRows()) {
			row := make(model.Record, batch.NumCols())
			for j, col := range batch.Columns() {
				row[j] = arrowValueString(col, i)
			}
			records = append(records, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("error reading table records: %w", err)
	}
	return model.NewSheet(p.name, model.NewHeader(labels), records), nil
}

// sheetFromRows uses the first row as header and pads the remaining rows to
// its width.
func (p *sheetParser) sheetFromRows(rows [][]string) *model.Sheet {
	header := model.NewHeader(append([]string(nil), rows[0]...))

	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		record := make(model.Record, len(header))
		copy(record, row)
		records = append(records, record)
	}
	return model.NewSheet(p.name, header, records)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// arrowValueString renders one Parquet cell as the text a spreadsheet would show.
func arrowValueString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int16:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int8:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Uint64:
		return strconv.FormatUint(a.Value(i), 10)
	case *array.Uint32:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Float64:
		return strconv.FormatFloat(a.Value(i), 'f', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(a.Value(i)), 'f', -1, 32)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i))
	default:
		return col.ValueStr(i)
	}
}
