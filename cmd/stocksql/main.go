// Command stocksql manages a local inventory database from the command line.
//
// Usage:
//
//	stocksql <command> [flags]
//
// Commands:
//
//	init        create the database file
//	write       write JSON records to a table
//	import      import a CSV, TSV, LTSV, XLSX or Parquet file
//	tables      list tables
//	query       search items across tables
//	increment   add one to an item's inventory
//	decrement   subtract one from an item's inventory
//	export      export tables to files
//	backup      export tables once or on a cron schedule
//
// Every command prints one JSON document: {"data": ..., "error": "..."}.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
)

// envelope is the output document of every command.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// command runs one subcommand and returns its payload.
type command func(ctx context.Context, env *environment, args []string) (any, error)

var commands = map[string]command{
	"init":      runInit,
	"write":     runWrite,
	"import":    runImport,
	"tables":    runTables,
	"query":     runQuery,
	"increment": runIncrement,
	"decrement": runDecrement,
	"export":    runExport,
	"backup":    runBackup,
}

// environment carries the process streams into commands.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &environment{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(run(ctx, env, os.Args[1:]))
}

// run executes args and writes the envelope to env.stdout. It returns the
// process exit code.
func run(ctx context.Context, env *environment, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(env.stderr, usage)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return writeEnvelope(env, nil, fmt.Errorf("unknown command %q", args[0]))
	}

	data, err := cmd(ctx, env, args[1:])
	return writeEnvelope(env, data, err)
}

// writeEnvelope prints data or err to env.stdout. Errors are stringified
// only here.
func writeEnvelope(env *environment, data any, err error) int {
	out := envelope{Data: data}
	code := 0
	if err != nil {
		out = envelope{Error: err.Error()}
		code = 1
	}

	enc := json.NewEncoder(env.stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		fmt.Fprintf(env.stderr, "failed to encode output: %v\n", encErr)
		return 1
	}
	return code
}

const usage = `usage: stocksql <command> [flags]

commands:
  init        create the database file
  write       write JSON records to a table
  import      import a CSV, TSV, LTSV, XLSX or Parquet file
  tables      list tables
  query       search items across tables
  increment   add one to an item's inventory
  decrement   subtract one from an item's inventory
  export      export tables to files
  backup      export tables once or on a cron schedule

Run "stocksql <command> -h" for the flags of a command.`
