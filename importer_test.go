package stocksql

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestStore_ImportFile(t *testing.T) {
	t.Parallel()

	t.Run("CSV with inferred mapping and derived table name", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()
		path := writeTestFile(t, t.TempDir(), "spring shoes.csv",
			"ID,Name,Price,Inventory,Brand\nA1,Red,10,5,Acme\nA2,Blue,12,0,\n")

		res, err := store.ImportFile(ctx, path, ImportOptions{Policy: MergeOnImport})
		require.NoError(t, err)
		assert.Equal(t, &ImportResult{Table: "spring_shoes", Rows: 2}, res)

		item := mustGetItem(t, store, "spring_shoes", "A1")
		require.NotNil(t, item.Brand)
		assert.Equal(t, "Acme", *item.Brand)
		assert.Nil(t, mustGetItem(t, store, "spring_shoes", "A2").Brand)
	})

	t.Run("explicit mapping", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()
		path := writeTestFile(t, t.TempDir(), "stock.tsv",
			"Code\tTitle\tCost\tOn hand\nA1\tRed\t10\t5\n")

		_, err := store.ImportFile(ctx, path, ImportOptions{
			Table:   "shoes",
			Mapping: ColumnMapping{ID: "Code", Name: "Title", Price: "Cost", Inventory: "On hand"},
			Policy:  MergeOnImport,
		})
		require.NoError(t, err)
		assert.Equal(t, Item{ID: "A1", Name: "Red", Price: 10, Inventory: 5}, *mustGetItem(t, store, "shoes", "A1"))
	})

	t.Run("repeated import merges inventory", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()
		dir := t.TempDir()
		first := writeTestFile(t, dir, "first.csv", "id,name,price,inventory\nA1,Red,10,5\n")
		second := writeTestFile(t, dir, "second.csv", "id,name,price,inventory\nA1,Red,10,3\n")

		opts := ImportOptions{Table: "shoes", Policy: MergeOnImport}
		_, err := store.ImportFile(ctx, first, opts)
		require.NoError(t, err)
		_, err = store.ImportFile(ctx, second, opts)
		require.NoError(t, err)

		assert.Equal(t, int64(8), mustGetItem(t, store, "shoes", "A1").Inventory)
	})

	t.Run("gzip compressed LTSV", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte("id:A1\tname:Red\tprice:10\tinventory:5\nid:A2\tname:Blue\tprice:7\tinventory:1\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		path := writeTestFile(t, t.TempDir(), "hats.ltsv.gz", buf.String())

		res, err := store.ImportFile(ctx, path, ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, "hats", res.Table)
		assert.Equal(t, int64(7), mustGetItem(t, store, "hats", "A2").Price)
	})

	t.Run("XLSX first sheet with spreadsheet numbers", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"id", "name", "price", "inventory"}))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"A1", "Red", 10, 5.0}))
		path := filepath.Join(t.TempDir(), "boots.xlsx")
		require.NoError(t, f.SaveAs(path))
		require.NoError(t, f.Close())

		_, err := store.ImportFile(ctx, path, ImportOptions{Policy: MergeOnImport})
		require.NoError(t, err)
		assert.Equal(t, int64(5), mustGetItem(t, store, "boots", "A1").Inventory)
	})

	t.Run("non-numeric cell", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()
		path := writeTestFile(t, t.TempDir(), "shoes.csv", "id,name,price,inventory\nA1,Red,10,5\nA2,Blue,ten,1\n")

		_, err := store.ImportFile(ctx, path, ImportOptions{})
		require.Error(t, err)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, 1, decodeErr.Index)
		assert.Equal(t, "price", decodeErr.Field)

		tables, err := store.ListTables(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tables)
	})

	t.Run("missing column", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		path := writeTestFile(t, t.TempDir(), "shoes.csv", "id,name,price\nA1,Red,10\n")

		_, err := store.ImportFile(context.Background(), path, ImportOptions{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unsupported file", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		path := writeTestFile(t, t.TempDir(), "shoes.json", "[]")

		_, err := store.ImportFile(context.Background(), path, ImportOptions{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("invalid table option", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		path := writeTestFile(t, t.TempDir(), "shoes.csv", "id,name,price,inventory\nA1,Red,10,5\n")

		_, err := store.ImportFile(context.Background(), path, ImportOptions{Table: "shoes; --"})
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestStore_ImportReader(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.ImportReader(ctx, strings.NewReader("id,name,price,inventory\nA1,Red,10,5\n"), FileTypeCSV,
		ImportOptions{Table: "shoes"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	_, err = store.ImportReader(ctx, strings.NewReader("x"), FileTypeUnsupported, ImportOptions{Table: "shoes"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.ImportReader(ctx, strings.NewReader("id,name,price,inventory\n"), FileTypeCSV, ImportOptions{})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
