package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nao1215/stocksql"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	dbPath     string
}

func newFlagSet(env *environment, name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)

	common := &commonFlags{}
	fs.StringVar(&common.configPath, "config", "", "YAML configuration file (default $"+configEnvVar+")")
	fs.StringVar(&common.dbPath, "db", "", "database file (overrides database.path)")
	return fs, common
}

// load resolves the configuration after flag parsing.
func (c *commonFlags) load() (Config, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return Config{}, err
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	return cfg, nil
}

// openStore opens the configured database. The caller must close it.
func openStore(ctx context.Context, env *environment, cfg Config) (*stocksql.Store, error) {
	builder, err := stocksql.NewBuilder().
		SetDatabasePath(cfg.Database.Path).
		SetBusyTimeout(cfg.Database.BusyTimeout).
		SetJournalMode(cfg.Database.JournalMode).
		SetLogger(cfg.Log.newLogger(env.stderr)).
		Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Open(ctx)
}

// withStore parses flags, opens the store and runs fn.
func withStore(ctx context.Context, env *environment, fs *flag.FlagSet, common *commonFlags, args []string,
	fn func(cfg Config, store *stocksql.Store) (any, error)) (any, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := common.load()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, env, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return fn(cfg, store)
}

func runInit(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "init")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := common.load()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create application directory: %w", err)
	}
	store, err := openStore(ctx, env, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return map[string]string{"path": store.Path()}, nil
}

func runWrite(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "write")
	table := fs.String("table", "", "destination table")
	imported := fs.Bool("import", false, "add inventory of existing ids instead of skipping them")
	file := fs.String("file", "", "JSON array of records (default stdin)")

	return withStore(ctx, env, fs, common, args, func(_ Config, store *stocksql.Store) (any, error) {
		records, err := readRecords(env.stdin, *file)
		if err != nil {
			return nil, err
		}

		policy := stocksql.PolicyFromImportFlag(*imported)
		job := store.WriteAsync(ctx, *table, records, policy)
		if err := job.Wait(); err != nil {
			return nil, err
		}
		return map[string]any{
			"job":     job.ID.String(),
			"table":   *table,
			"records": len(records),
			"policy":  policy.String(),
		}, nil
	})
}

// readRecords decodes a JSON array of objects from path, or from stdin when
// path is empty. Numbers are kept exact.
func readRecords(stdin io.Reader, path string) ([]map[string]any, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path) //nolint:gosec // User-provided path is necessary for file operations
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: records must be a JSON array of objects: %w", stocksql.ErrDecode, err)
	}
	return records, nil
}

func runImport(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "import")
	table := fs.String("table", "", "destination table (default: derived from the file name)")
	imported := fs.Bool("import", true, "add inventory of existing ids instead of skipping them")
	mapping := fs.String("map", "", "column mapping, e.g. id=Code,name=Title,price=Price,inventory=Stock,brand=Maker")

	return withStore(ctx, env, fs, common, args, func(_ Config, store *stocksql.Store) (any, error) {
		if fs.NArg() != 1 {
			return nil, errors.New("import takes exactly one file")
		}
		m, err := parseMapping(*mapping)
		if err != nil {
			return nil, err
		}
		return store.ImportFile(ctx, fs.Arg(0), stocksql.ImportOptions{
			Table:   *table,
			Mapping: m,
			Policy:  stocksql.PolicyFromImportFlag(*imported),
		})
	})
}

// parseMapping parses "field=label" pairs separated by commas.
func parseMapping(s string) (stocksql.ColumnMapping, error) {
	var m stocksql.ColumnMapping
	if strings.TrimSpace(s) == "" {
		return m, nil
	}
	for _, pair := range strings.Split(s, ",") {
		field, label, ok := strings.Cut(pair, "=")
		if !ok {
			return m, fmt.Errorf("invalid mapping %q: want field=label", pair)
		}
		label = strings.TrimSpace(label)
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "id":
			m.ID = label
		case "name":
			m.Name = label
		case "price":
			m.Price = label
		case "inventory":
			m.Inventory = label
		case "brand":
			m.Brand = label
		default:
			return m, fmt.Errorf("invalid mapping %q: unknown field %q", pair, field)
		}
	}
	return m, nil
}

func runTables(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "tables")
	filter := fs.String("filter", "", "substring of table names")

	return withStore(ctx, env, fs, common, args, func(_ Config, store *stocksql.Store) (any, error) {
		return store.ListTables(ctx, *filter)
	})
}

func runQuery(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "query")
	table := fs.String("table", "", "substring of table names")
	id := fs.String("id", "", "substring of item ids")
	name := fs.String("name", "", "substring of item names")
	page := fs.Int("page", 1, "page number, starting at 1")
	size := fs.Int("size", 0, "rows per table and page (default query.page_size)")

	return withStore(ctx, env, fs, common, args, func(cfg Config, store *stocksql.Store) (any, error) {
		pageSize := *size
		if pageSize == 0 {
			pageSize = cfg.Query.PageSize
		}
		return store.Query(ctx, stocksql.QueryParams{
			TableFilter: *table,
			IDFilter:    *id,
			NameFilter:  *name,
			Page:        *page,
			PageSize:    pageSize,
		})
	})
}

func runIncrement(ctx context.Context, env *environment, args []string) (any, error) {
	return runAdjust(ctx, env, "increment", args, (*stocksql.Store).Increment)
}

func runDecrement(ctx context.Context, env *environment, args []string) (any, error) {
	return runAdjust(ctx, env, "decrement", args, (*stocksql.Store).Decrement)
}

func runAdjust(ctx context.Context, env *environment, name string, args []string,
	adjust func(*stocksql.Store, context.Context, string, string) error) (any, error) {
	fs, common := newFlagSet(env, name)
	table := fs.String("table", "", "table of the item")
	id := fs.String("id", "", "item id")

	return withStore(ctx, env, fs, common, args, func(_ Config, store *stocksql.Store) (any, error) {
		if err := adjust(store, ctx, *id, *table); err != nil {
			return nil, err
		}
		return store.GetItem(ctx, *table, *id)
	})
}

func runExport(ctx context.Context, env *environment, args []string) (any, error) {
	fs, common := newFlagSet(env, "export")
	dir := fs.String("dir", "", "output directory")
	filter := fs.String("filter", "", "substring of table names")
	format := fs.String("format", "csv", "csv, tsv, ltsv, xlsx or parquet")
	compression := fs.String("compression", "none", "none, gz, xz or zstd")

	return withStore(ctx, env, fs, common, args, func(_ Config, store *stocksql.Store) (any, error) {
		opts, err := exportOptions(*filter, *format, *compression)
		if err != nil {
			return nil, err
		}
		return store.Export(ctx, *dir, opts)
	})
}

func exportOptions(filter, format, compression string) (stocksql.ExportOptions, error) {
	ft := stocksql.ParseFileType(format)
	if ft == stocksql.FileTypeUnsupported {
		return stocksql.ExportOptions{}, fmt.Errorf("%w: unsupported format %q", stocksql.ErrValidation, format)
	}
	ct, err := stocksql.ParseCompressionType(compression)
	if err != nil {
		return stocksql.ExportOptions{}, err
	}
	return stocksql.NewExportOptions().
		WithTableFilter(filter).
		WithFormat(ft).
		WithCompression(ct), nil
}
