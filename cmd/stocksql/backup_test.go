package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/stocksql"
)

func newBackupRunner(t *testing.T) *backupRunner {
	t.Helper()

	ctx := context.Background()
	store, err := stocksql.Open(ctx, filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	records := []map[string]any{{"id": "A1", "name": "Red", "price": 10, "inventory": 5}}
	require.NoError(t, store.Write(ctx, "shoes", records, stocksql.IgnoreDuplicate))

	opts, err := exportOptions("", "csv", "gz")
	require.NoError(t, err)
	return &backupRunner{
		store:  store,
		root:   t.TempDir(),
		opts:   opts,
		logger: slog.New(slog.DiscardHandler),
		now: func() time.Time {
			return time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("JST", 9*60*60))
		},
	}
}

func TestBackupRunner_Run(t *testing.T) {
	t.Parallel()

	b := newBackupRunner(t)
	run, err := b.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(b.root, "20240301T033000Z"), run.Dir)
	require.Len(t, run.Files, 1)
	assert.Equal(t, filepath.Join(run.Dir, "shoes.csv.gz"), run.Files[0])
	_, err = os.Stat(run.Files[0])
	assert.NoError(t, err)
}

func TestBackupRunner_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("runs until cancelled", func(t *testing.T) {
		t.Parallel()

		b := newBackupRunner(t)
		ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
		defer cancel()

		runs, err := b.schedule(ctx, "@every 1s")
		require.NoError(t, err)
		assert.NotEmpty(t, runs)
		for _, run := range runs {
			assert.Len(t, run.Files, 1)
		}
	})

	t.Run("invalid schedule", func(t *testing.T) {
		t.Parallel()

		b := newBackupRunner(t)
		_, err := b.schedule(context.Background(), "every day")
		assert.ErrorContains(t, err, "invalid schedule")
	})
}
