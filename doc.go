// Package stocksql is the persistence core of a local inventory-management
// application. Items are grouped into category tables that are created at
// runtime in a single SQLite file; their names are user-supplied strings.
//
// # Features
//
//   - Create item tables on demand, idempotently
//   - Bulk writes that either ignore existing ids or add to their inventory
//   - Increment and decrement a single item's inventory
//   - Paginated, substring-filtered queries across every matching table
//   - Import CSV, TSV, LTSV, Excel (XLSX) and Parquet sheets, compressed or not
//   - Export tables to the same formats for backups
//
// # Basic Usage
//
//	store, err := stocksql.Open(ctx, "inventory.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Write(ctx, "shoes", []map[string]any{
//	    {"id": "A1", "name": "Red", "price": 10, "inventory": 5},
//	}, stocksql.MergeOnImport)
//
//	result, err := store.Query(ctx, stocksql.QueryParams{
//	    TableFilter: "sho",
//	    Page:        1,
//	    PageSize:    20,
//	})
//
// # Advanced Usage
//
// Use the Builder to tune the connection:
//
//	builder := stocksql.NewBuilder().
//	    SetDatabasePath("inventory.db").
//	    SetBusyTimeout(10 * time.Second).
//	    SetJournalMode("WAL").
//	    SetLogger(slog.Default())
//
//	validatedBuilder, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store, err := validatedBuilder.Open(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Table Names
//
// A table name must be non-empty and consist of ASCII letters, digits and
// underscores only. Every other name is rejected with ErrInvalidIdentifier
// before any SQL is built. Names are bracket-quoted in statements, so SQL
// keywords such as "order" are valid table names. Row values are always
// bound parameters.
//
// # Connections
//
// A Store keeps no connection open between operations unless
// SetMaxIdleConns says otherwise. SQLite allows one writer at a time; a
// writer that finds the database locked waits up to the busy timeout.
//
// # Schema Revisions
//
// Tables are created with the columns id, name, price, inventory and brand.
// Tables created by earlier versions of the application lack brand. They are
// never altered: EnsureTable and Write report ErrSchemaMismatch for them,
// Query still counts their rows but skips them when fetching, and Adjust,
// GetItem and Export work on them unchanged.
//
// # Errors
//
// Errors of EnsureTable, Write, Adjust, ListTables and Query match one of
// ErrInvalidIdentifier, ErrDecode, ErrNotFound, ErrDatabase or ErrValidation
// under errors.Is. A decode failure carries a
// *DecodeError with the record index and field.
//
// For complete SQL syntax documentation, see: https://www.sqlite.org/lang.html
package stocksql
