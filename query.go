package stocksql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/stocksql/domain/model"
)

// itemFilter is the row predicate shared by the count and fetch queries.
const itemFilter = `WHERE id LIKE '%' || ? || '%' ESCAPE '\' AND name LIKE '%' || ? || '%' ESCAPE '\'`

// Query searches every table whose name contains params.TableFilter for
// rows whose id and name contain params.IDFilter and params.NameFilter.
//
// Pagination is applied to each table independently: every table
// contributes at most PageSize rows starting at (Page-1)*PageSize, and rows
// are concatenated in table creation order. TotalCount sums the matches of
// all tables and TotalPages is ceil(TotalCount/PageSize).
//
// A table that cannot be counted or fetched (for example one created before
// the brand column existed) is logged and skipped; it never fails the query.
func (s *Store) Query(ctx context.Context, params model.QueryParams) (*model.PaginatedResult, error) {
	ec := NewErrorContext("query")
	if err := params.Validate(); err != nil {
		return nil, ec.Error(err)
	}

	conn, err := s.conn(ctx, "query")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tables, err := listTables(ctx, conn, params.TableFilter)
	if err != nil {
		return nil, ec.WithDetails("list tables").Database(err)
	}

	idFilter := escapeLike(params.IDFilter)
	nameFilter := escapeLike(params.NameFilter)

	result := &model.PaginatedResult{Items: []model.Item{}}
	for _, table := range tables {
		logger := s.logger.With(slogTable(table))
		if !model.IsValidIdentifier(table) {
			logger.WarnContext(ctx, "skipping table with unsafe name")
			continue
		}

		count, err := countItems(ctx, conn, table, idFilter, nameFilter)
		if err != nil {
			logger.WarnContext(ctx, "skipping table: count failed", slog.Any("error", err))
			continue
		}
		result.TotalCount += count

		items, err := fetchItems(ctx, conn, table, idFilter, nameFilter, params.PageSize, params.Offset())
		if err != nil {
			logger.WarnContext(ctx, "skipping table: fetch failed", slog.Any("error", err))
			continue
		}
		result.Items = append(result.Items, items...)
	}

	result.TotalPages = model.TotalPages(result.TotalCount, params.PageSize)
	return result, nil
}

func countItems(ctx context.Context, q sqlx.QueryerContext, table, idFilter, nameFilter string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", quoteIdentifier(table), itemFilter)
	if err := sqlx.GetContext(ctx, q, &n, query, idFilter, nameFilter); err != nil {
		return 0, err
	}
	return n, nil
}

// fetchItems selects the canonical columns, so tables without them fail.
func fetchItems(ctx context.Context, q sqlx.QueryerContext, table, idFilter, nameFilter string, limit, offset int) ([]model.Item, error) {
	var items []model.Item
	query := fmt.Sprintf("%s %s LIMIT ? OFFSET ?", selectItemsQuery(table, true), itemFilter)
	if err := sqlx.SelectContext(ctx, q, &items, query, idFilter, nameFilter, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}
