package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nao1215/stocksql"
)

// backupTimeLayout names the per-run subdirectory
const backupTimeLayout = "20060102T150405Z"

// backupRun is the result of one backup.
type backupRun struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

func runBackup(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "backup")
	dir := fs.String("dir", "", "backup root directory (default backup.dir)")
	schedule := fs.String("schedule", "", `cron expression such as "0 3 * * *" or "@daily"; runs once when empty`)
	format := fs.String("format", "", "csv, tsv, ltsv, xlsx or parquet (default backup.format)")
	compression := fs.String("compression", "", "none, gz, xz or zstd (default backup.compression)")

	return withStore(ctx, env, fs, common, args, func(cfg Config, store *stocksql.Store) (any, error) {
		b := cfg.Backup
		if *dir != "" {
			b.Dir = *dir
		}
		if *schedule != "" {
			b.Schedule = *schedule
		}
		if *format != "" {
			b.Format = *format
		}
		if *compression != "" {
			b.Compression = *compression
		}

		opts, err := exportOptions("", b.Format, b.Compression)
		if err != nil {
			return nil, err
		}
		logger := cfg.Log.newLogger(env.stderr)
		backup := &backupRunner{store: store, root: b.Dir, opts: opts, logger: logger, now: time.Now}

		if b.Schedule == "" {
			return backup.run(ctx)
		}
		return backup.schedule(ctx, b.Schedule)
	})
}

// backupRunner exports every table into a timestamped directory.
type backupRunner struct {
	store  *stocksql.Store
	root   string
	opts   stocksql.ExportOptions
	logger *slog.Logger
	now    func() time.Time
}

func (b *backupRunner) run(ctx context.Context) (*backupRun, error) {
	dir := filepath.Join(b.root, b.now().UTC().Format(backupTimeLayout))
	files, err := b.store.Export(ctx, dir, b.opts)
	if err != nil {
		return nil, err
	}
	b.logger.InfoContext(ctx, "backup written", slog.String("dir", dir), slog.Int("files", len(files)))
	return &backupRun{Dir: dir, Files: files}, nil
}

// schedule runs a backup on every tick of spec until ctx is cancelled and
// returns the runs that succeeded.
func (b *backupRunner) schedule(ctx context.Context, spec string) ([]*backupRun, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	runs := make(chan *backupRun, 1)
	_, err := c.AddFunc(spec, func() {
		run, err := b.run(ctx)
		if err != nil {
			b.logger.ErrorContext(ctx, "backup failed", slog.Any("error", err))
			return
		}
		select {
		case runs <- run:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	b.logger.InfoContext(ctx, "backup scheduler started", slog.String("schedule", spec))
	c.Start()

	var done []*backupRun
	for {
		select {
		case run := <-runs:
			done = append(done, run)
		case <-ctx.Done():
			<-c.Stop().Done()
			// drain a run that finished while stopping
			select {
			case run := <-runs:
				done = append(done, run)
			default:
			}
			b.logger.InfoContext(ctx, "backup scheduler stopped", slog.Int("runs", len(done)))
			return done, nil
		}
	}
}
