package stocksql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/stocksql/domain/model"
)

// queryer is satisfied by both *sqlx.Conn and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// createTableQuery returns the DDL of the current schema revision.
func createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price INTEGER NOT NULL CHECK (price >= 0),
	inventory INTEGER NOT NULL DEFAULT 0,
	brand TEXT
)`, quoteIdentifier(table))
}

// columnSet is the set of column names of one table.
type columnSet map[string]struct{}

func (c columnSet) has(name string) bool {
	_, ok := c[strings.ToLower(name)]
	return ok
}

// missing returns the canonical columns the table lacks, in DDL order.
func (c columnSet) missing() []string {
	var out []string
	for _, col := range model.CanonicalColumns {
		if !c.has(col) {
			out = append(out, col)
		}
	}
	return out
}

// tableColumnNames returns the columns of table in declaration order.
func tableColumnNames(ctx context.Context, q sqlx.QueryerContext, table string) ([]string, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, q, &names, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table); err != nil {
		return nil, err
	}
	return names, nil
}

func tableColumns(ctx context.Context, q sqlx.QueryerContext, table string) (columnSet, error) {
	names, err := tableColumnNames(ctx, q, table)
	if err != nil {
		return nil, err
	}
	set := make(columnSet, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set, nil
}

// tableExists reports whether a table named table exists. SQLite table
// names are case-insensitive.
func tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", table)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureTable creates the item table name if it does not exist. Calling it
// again is a no-op. A table created by an earlier schema revision is never
// altered: EnsureTable reports it with ErrSchemaMismatch instead.
func (s *Store) EnsureTable(ctx context.Context, name string) error {
	if err := model.ValidateIdentifier(name); err != nil {
		return NewErrorContext("ensure table").WithTable(name).Error(err)
	}

	conn, err := s.conn(ctx, "ensure table")
	if err != nil {
		return err
	}
	defer conn.Close()

	return s.ensureTable(ctx, conn, name)
}

// ensureTable provisions name on q. name must already be validated.
func (s *Store) ensureTable(ctx context.Context, q queryer, name string) error {
	ec := NewErrorContext("ensure table").WithTable(name)

	existed, err := tableExists(ctx, q, name)
	if err != nil {
		return ec.Database(err)
	}
	if _, err := q.ExecContext(ctx, createTableQuery(name)); err != nil {
		return ec.Database(err)
	}
	if !existed {
		s.logger.InfoContext(ctx, "table provisioned", slogTable(name))
		return nil
	}

	cols, err := tableColumns(ctx, q, name)
	if err != nil {
		return ec.Database(err)
	}
	if missing := cols.missing(); len(missing) > 0 {
		return ec.WithDetails("missing columns: " + strings.Join(missing, ", ")).Error(ErrSchemaMismatch)
	}
	return nil
}
