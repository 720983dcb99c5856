package stocksql

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// likeEscaper escapes LIKE wildcards so that a filter matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike prepares s for `LIKE '%' || ? || '%' ESCAPE '\'`.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const listTablesQuery = `SELECT name FROM sqlite_master
WHERE type = 'table'
  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
  AND name LIKE '%' || ? || '%' ESCAPE '\'
ORDER BY rowid`

// ListTables returns the names of every table whose name contains filter,
// in creation order. An empty filter lists all tables.
//
// Matching uses SQLite's LIKE: ASCII letters compare case-insensitively
// ("PROD" matches "products"), other characters compare exactly. The result
// is empty, not nil, when nothing matches.
func (s *Store) ListTables(ctx context.Context, filter string) ([]string, error) {
	conn, err := s.conn(ctx, "list tables")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tables, err := listTables(ctx, conn, filter)
	if err != nil {
		return nil, NewErrorContext("list tables").WithDetails("filter " + filter).Database(err)
	}
	return tables, nil
}

func listTables(ctx context.Context, q sqlx.QueryerContext, filter string) ([]string, error) {
	tables := []string{}
	if err := sqlx.SelectContext(ctx, q, &tables, listTablesQuery, escapeLike(filter)); err != nil {
		return nil, err
	}
	return tables, nil
}
