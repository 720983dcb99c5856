package stocksql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/stocksql/domain/model"
)

// Store is the persistence core of the inventory: a set of item tables in
// one SQLite file. It holds no per-call state; every operation acquires its
// own connection and releases it before returning, so a Store is safe for
// concurrent use.
type Store struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// conn acquires a dedicated connection for one operation. The caller must
// close it.
func (s *Store) conn(ctx context.Context, op string) (*sqlx.Conn, error) {
	c, err := s.db.Connx(ctx)
	if err != nil {
		return nil, NewErrorContext(op).WithDetails("acquire connection").Database(err)
	}
	return c, nil
}

// quoteIdentifier quotes a validated table name for interpolation.
func quoteIdentifier(name string) string {
	return fmt.Sprintf("[%s]", name)
}

// GetItem returns the row with id from table. A missing table or row is
// ErrNotFound.
func (s *Store) GetItem(ctx context.Context, table, id string) (*model.Item, error) {
	ec := NewErrorContext("get item").WithTable(table)
	if err := model.ValidateIdentifier(table); err != nil {
		return nil, ec.Error(err)
	}

	conn, err := s.conn(ctx, "get item")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	exists, err := tableExists(ctx, conn, table)
	if err != nil {
		return nil, ec.Database(err)
	}
	if !exists {
		return nil, ec.WithDetails("table does not exist").Error(ErrNotFound)
	}

	cols, err := tableColumns(ctx, conn, table)
	if err != nil {
		return nil, ec.Database(err)
	}

	var item model.Item
	if err := conn.GetContext(ctx, &item, selectItemsQuery(table, cols.has(model.FieldBrand))+" WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ec.WithDetails("id "+id).Error(ErrNotFound)
		}
		return nil, ec.Database(err)
	}
	return &item, nil
}

// selectItemsQuery builds the canonical projection of an item table. Legacy
// tables without a brand column project NULL in its place.
func selectItemsQuery(table string, hasBrand bool) string {
	brand := "NULL"
	if hasBrand {
		brand = "brand"
	}
	return fmt.Sprintf(
		"SELECT id, name, price, COALESCE(inventory, 0) AS inventory, %s AS brand FROM %s",
		brand, quoteIdentifier(table))
}

func slogTable(name string) slog.Attr {
	return slog.String("table", name)
}
