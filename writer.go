package stocksql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nao1215/stocksql/domain/model"
)

// insertQuery returns the INSERT statement of policy for table.
func insertQuery(table string, policy model.ConflictPolicy) string {
	insert := fmt.Sprintf(
		"INSERT INTO %s (id, name, price, inventory, brand) VALUES (?, ?, ?, ?, ?)",
		quoteIdentifier(table))

	switch policy {
	case model.MergeOnImport:
		return insert + " ON CONFLICT(id) DO UPDATE SET inventory = COALESCE(inventory, 0) + excluded.inventory"
	default:
		return insert + " ON CONFLICT(id) DO NOTHING"
	}
}

// stockQuery reads the stored inventory of one id.
func stockQuery(table string) string {
	return fmt.Sprintf("SELECT COALESCE(inventory, 0) FROM %s WHERE id = ?", quoteIdentifier(table))
}

// checkMerge rejects an item whose inventory cannot be added to the stored
// one without leaving the int64 range.
func checkMerge(ctx context.Context, stock *sqlx.Stmt, item model.Item) error {
	var current int64
	err := stock.GetContext(ctx, &current, item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = model.AddInventory(current, item.Inventory)
	return err
}

// Write stores records in the item table name, creating the table on first
// use.
//
// Every record is decoded before anything is written; the first malformed
// record fails the call with a *DecodeError (ErrDecode). The rows are then
// inserted in a single transaction, so an engine failure on any row leaves
// the table as it was. With IgnoreDuplicate an existing id is left
// untouched; with MergeOnImport the incoming inventory is added to the
// stored one and every other stored field is kept.
func (s *Store) Write(ctx context.Context, name string, records []map[string]any, policy model.ConflictPolicy) error {
	ec := NewErrorContext("write").WithTable(name)

	if err := model.ValidateIdentifier(name); err != nil {
		return ec.Error(err)
	}
	if !policy.IsValid() {
		return ec.Error(fmt.Errorf("%w: unknown conflict policy %d", ErrValidation, int(policy)))
	}

	items, err := model.DecodeItems(records)
	if err != nil {
		return ec.Error(err)
	}
	return s.writeItems(ctx, name, items, policy)
}

// writeItems provisions name and inserts items in one transaction.
func (s *Store) writeItems(ctx context.Context, name string, items []model.Item, policy model.ConflictPolicy) (err error) {
	ec := NewErrorContext("write").WithTable(name)

	conn, err := s.conn(ctx, "write")
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return ec.Database(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.ErrorContext(ctx, "rollback failed", slogTable(name), slog.Any("error", rbErr))
			}
		}
	}()

	if err = s.ensureTable(ctx, tx, name); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, insertQuery(name, policy))
	if err != nil {
		return ec.Database(err)
	}
	defer stmt.Close()

	var stock *sqlx.Stmt
	if policy == model.MergeOnImport {
		stock, err = tx.PreparexContext(ctx, stockQuery(name))
		if err != nil {
			return ec.Database(err)
		}
		defer stock.Close()
	}

	for i, item := range items {
		rec := ec.WithDetails(fmt.Sprintf("record %d (id %q)", i, item.ID))
		if stock != nil {
			if err = checkMerge(ctx, stock, item); err != nil {
				if errors.Is(err, ErrValidation) {
					return rec.Error(err)
				}
				return rec.Database(err)
			}
		}
		if _, err = stmt.ExecContext(ctx, item.ID, item.Name, item.Price, item.Inventory, item.Brand); err != nil {
			return rec.Database(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return ec.Database(err)
	}
	return nil
}

// WriteJob is a Write running in the background.
type WriteJob struct {
	// ID identifies the job in logs.
	ID uuid.UUID

	done chan struct{}
	err  error
}

// Done is closed when the job has finished.
func (j *WriteJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job has finished and returns its error.
func (j *WriteJob) Wait() error {
	<-j.done
	return j.err
}

// Err returns the job error, or nil while the job is still running.
func (j *WriteJob) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// WriteAsync runs Write on its own goroutine so an interactive caller is
// not blocked. The job finishes once every record has been written or the
// first failure occurs.
func (s *Store) WriteAsync(ctx context.Context, name string, records []map[string]any, policy model.ConflictPolicy) *WriteJob {
	job := &WriteJob{
		ID:   uuid.New(),
		done: make(chan struct{}),
	}
	logger := s.logger.With(slog.String("job", job.ID.String()), slogTable(name))

	go func() {
		defer close(job.done)

		start := time.Now()
		logger.DebugContext(ctx, "write job started", slog.Int("records", len(records)), slog.String("policy", policy.String()))

		job.err = s.Write(ctx, name, records, policy)
		if job.err != nil {
			logger.ErrorContext(ctx, "write job failed", slog.Any("error", job.err))
			return
		}
		logger.InfoContext(ctx, "write job finished", slog.Int("records", len(records)), slog.Duration("elapsed", time.Since(start)))
	}()
	return job
}
