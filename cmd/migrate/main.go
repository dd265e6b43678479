package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"expense-ledger/internal/config"
	"expense-ledger/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "Path to sqlite database file (defaults to DB_DRIVER/DB_PATH/DATABASE_URL)")
	steps := fs.Int("steps", 1, "Number of migrations to roll back with down")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: migrate [-db <db_path>] [-steps N] up|down|version")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one command")
	}

	cfg := config.Load()
	opts := storage.Options{Driver: storage.Driver(cfg.DBDriver), DSN: cfg.DSN()}
	if *dbPath != "" {
		opts = storage.Options{Driver: storage.DriverSQLite, DSN: *dbPath}
	}

	db, err := storage.Open(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch cmd := fs.Arg(0); cmd {
	case "up":
		if err := db.Migrate(); err != nil {
			return err
		}
	case "down":
		if *steps < 1 {
			return fmt.Errorf("steps must be at least 1")
		}
		if err := db.MigrateDown(*steps); err != nil {
			return err
		}
	case "version":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(stdout, "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(stdout, "schema version %d\n", version)
	return nil
}
