package stocksql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/stocksql/domain/model"
)

// Adjust adds delta (+1 or -1) to the inventory of the row id in table name.
// A missing table and a missing row are both ErrNotFound. Inventory has no
// floor; decrementing below zero succeeds, but a result outside the int64
// range is ErrValidation.
func (s *Store) Adjust(ctx context.Context, name, id string, delta int) (err error) {
	ec := NewErrorContext("adjust").WithTable(name)

	if err := model.ValidateIdentifier(name); err != nil {
		return ec.Error(err)
	}
	if delta != 1 && delta != -1 {
		return ec.Error(fmt.Errorf("%w: delta must be +1 or -1, got %d", ErrValidation, delta))
	}

	conn, err := s.conn(ctx, "adjust")
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
			_ = tx.Rollback() // Ignore rollback error since we're already returning an error
		}
	}()

	exists, err := tableExists(ctx, tx, name)
	if err != nil {
		return ec.Database(err)
	}
	if !exists {
		return ec.WithDetails("table does not exist").Error(ErrNotFound)
	}

	var current int64
	err = tx.GetContext(ctx, &current, stockQuery(name), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ec.WithDetails("id " + id).Error(ErrNotFound)
	}
	if err != nil {
		return ec.Database(err)
	}

	next, err := model.AddInventory(current, int64(delta))
	if err != nil {
		return ec.WithDetails("id " + id).Error(err)
	}
	if _, err = tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET inventory = ? WHERE id = ?", quoteIdentifier(name)),
		next, id); err != nil {
		return ec.Database(err)
	}
	if err = tx.Commit(); err != nil {
		return ec.Database(err)
	}
	return nil
}

// Increment adds one to the inventory of id in table name.
func (s *Store) Increment(ctx context.Context, id, name string) error {
	return s.Adjust(ctx, name, id, 1)
}

// Decrement subtracts one from the inventory of id in table name.
func (s *Store) Decrement(ctx context.Context, id, name string) error {
	return s.Adjust(ctx, name, id, -1)
}
