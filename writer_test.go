package stocksql

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, name string, price, inventory int) map[string]any {
	return map[string]any{"id": id, "name": name, "price": price, "inventory": inventory}
}

func mustGetItem(t *testing.T, store *Store, table, id string) *Item {
	t.Helper()

	item, err := store.GetItem(context.Background(), table, id)
	require.NoError(t, err)
	return item
}

func TestStore_Write(t *testing.T) {
	t.Parallel()

	t.Run("creates the table lazily", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, IgnoreDuplicate))

		item := mustGetItem(t, store, "shoes", "A1")
		assert.Equal(t, Item{ID: "A1", Name: "Red", Price: 10, Inventory: 5}, *item)
	})

	t.Run("ignore duplicate keeps stored row", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, IgnoreDuplicate))
		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Blue", 99, 7)}, IgnoreDuplicate))

		item := mustGetItem(t, store, "shoes", "A1")
		assert.Equal(t, Item{ID: "A1", Name: "Red", Price: 10, Inventory: 5}, *item)
	})

	t.Run("merge on import adds inventory only", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport))
		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Blue", 99, 3)}, MergeOnImport))

		item := mustGetItem(t, store, "shoes", "A1")
		assert.Equal(t, Item{ID: "A1", Name: "Red", Price: 10, Inventory: 8}, *item)
	})

	t.Run("duplicate ids within one batch", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		batch := []map[string]any{record("A1", "Red", 10, 1), record("A1", "Red", 10, 2)}
		require.NoError(t, store.Write(ctx, "merged", batch, MergeOnImport))
		require.NoError(t, store.Write(ctx, "ignored", batch, IgnoreDuplicate))

		assert.Equal(t, int64(3), mustGetItem(t, store, "merged", "A1").Inventory)
		assert.Equal(t, int64(1), mustGetItem(t, store, "ignored", "A1").Inventory)
	})

	t.Run("same id in different tables", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport))
		require.NoError(t, store.Write(ctx, "hats", []map[string]any{record("A1", "Cap", 3, 1)}, MergeOnImport))

		assert.Equal(t, int64(5), mustGetItem(t, store, "shoes", "A1").Inventory)
		assert.Equal(t, int64(1), mustGetItem(t, store, "hats", "A1").Inventory)
	})

	t.Run("brand is stored", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		rec := record("A1", "Red", 10, 5)
		rec["brand"] = "Acme"
		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{rec}, IgnoreDuplicate))

		item := mustGetItem(t, store, "shoes", "A1")
		require.NotNil(t, item.Brand)
		assert.Equal(t, "Acme", *item.Brand)
	})

	t.Run("JSON numbers", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(`[{"id":"A1","name":"Red","price":10,"inventory":5}]`), &records))
		require.NoError(t, store.Write(ctx, "shoes", records, MergeOnImport))

		assert.Equal(t, int64(10), mustGetItem(t, store, "shoes", "A1").Price)
	})

	t.Run("invalid table name", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		err := store.Write(ctx, "shoes;--", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)

		tables, err := store.ListTables(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tables)
	})

	t.Run("decode error aborts the whole batch", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		batch := []map[string]any{
			record("A1", "Red", 10, 5),
			{"id": "A2", "name": "Blue", "price": "ten", "inventory": 1},
		}
		err := store.Write(ctx, "shoes", batch, MergeOnImport)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDecode)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, 1, decodeErr.Index)
		assert.Equal(t, "price", decodeErr.Field)

		tables, err := store.ListTables(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tables, "no table should be created for a rejected batch")
	})

	t.Run("engine error rolls back", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, IgnoreDuplicate))

		// A trigger turns the second insert into an engine failure.
		_, err := store.db.ExecContext(ctx, `CREATE TRIGGER reject_b2 BEFORE INSERT ON shoes
WHEN NEW.id = 'B2' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
		require.NoError(t, err)

		err = store.Write(ctx, "shoes", []map[string]any{record("B1", "Green", 1, 1), record("B2", "Black", 1, 1)}, IgnoreDuplicate)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDatabase)

		_, err = store.GetItem(ctx, "shoes", "B1")
		assert.ErrorIs(t, err, ErrNotFound, "B1 should have been rolled back")
	})

	t.Run("legacy table", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()
		createLegacyTable(t, store, "boots")

		err := store.Write(ctx, "boots", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("unknown policy", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		err := store.Write(context.Background(), "shoes", nil, ConflictPolicy(42))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty batch provisions the table", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Write(ctx, "shoes", nil, IgnoreDuplicate))
		tables, err := store.ListTables(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"shoes"}, tables)
	})
}

func TestStore_Write_InventoryOverflow(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport))

	batch := []map[string]any{
		record("A2", "Blue", 7, 1),
		{"id": "A1", "name": "Red", "price": 10, "inventory": int64(math.MaxInt64)},
	}
	err := store.Write(ctx, "shoes", batch, MergeOnImport)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `record 1 (id "A1")`)

	assert.Equal(t, int64(5), mustGetItem(t, store, "shoes", "A1").Inventory)
	_, err = store.GetItem(ctx, "shoes", "A2")
	assert.ErrorIs(t, err, ErrNotFound, "the whole batch is rolled back")

	require.NoError(t, store.Write(ctx, "shoes", batch[1:], IgnoreDuplicate), "ignored duplicates never add")
	require.NoError(t, store.Write(ctx, "shoes",
		[]map[string]any{{"id": "A1", "name": "Red", "price": 10, "inventory": int64(math.MaxInt64 - 5)}}, MergeOnImport))
	assert.Equal(t, int64(math.MaxInt64), mustGetItem(t, store, "shoes", "A1").Inventory)
}

func TestStore_WriteAsync(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		job := store.WriteAsync(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport)
		require.NotNil(t, job)
		assert.NotEqual(t, [16]byte{}, [16]byte(job.ID))

		select {
		case <-job.Done():
		case <-time.After(10 * time.Second):
			t.Fatal("write job did not finish")
		}
		require.NoError(t, job.Wait())
		assert.NoError(t, job.Err())
		assert.Equal(t, int64(5), mustGetItem(t, store, "shoes", "A1").Inventory)
	})

	t.Run("failure is reported", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		job := store.WriteAsync(context.Background(), "bad name", []map[string]any{record("A1", "Red", 10, 5)}, MergeOnImport)
		err := job.Wait()
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
		assert.ErrorIs(t, job.Err(), ErrInvalidIdentifier)
	})

	t.Run("concurrent jobs", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		jobs := make([]*WriteJob, 0, 8)
		for range 8 {
			jobs = append(jobs, store.WriteAsync(ctx, "shoes", []map[string]any{record("A1", "Red", 10, 1)}, MergeOnImport))
		}
		for _, job := range jobs {
			require.NoError(t, job.Wait())
		}
		assert.Equal(t, int64(8), mustGetItem(t, store, "shoes", "A1").Inventory)
	})
}

func TestInsertQuery(t *testing.T) {
	t.Parallel()

	assert.Contains(t, insertQuery("shoes", IgnoreDuplicate), "INSERT INTO [shoes]")
	assert.Contains(t, insertQuery("shoes", IgnoreDuplicate), "DO NOTHING")
	assert.Contains(t, insertQuery("shoes", MergeOnImport), "inventory = COALESCE(inventory, 0) + excluded.inventory")
}
