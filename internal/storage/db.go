package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Register the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Register the sqlite driver.
	_ "modernc.org/sqlite"
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Options configures Open.
type Options struct {
	Driver Driver
	// DSN is a file path (or ":memory:") for sqlite and a connection URL for postgres.
	DSN string
}

// DB wraps a sql.DB connection pool. Every method acquires a connection for the
// duration of one operation and releases it before returning.
type DB struct {
	conn   *sql.DB
	driver Driver
}

// Open connects to the configured backend. It does not touch the schema; call Migrate for that.
func Open(ctx context.Context, opts Options) (*DB, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, opts.DSN)
	case DriverPostgres:
		return openPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: path})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection: sqlite serializes writers anyway, and ":memory:" databases
	// exist per connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &DB{conn: conn, driver: DriverSQLite}, nil
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	conn.SetMaxOpenConns(10)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}
	return &DB{conn: conn, driver: DriverPostgres}, nil
}

// Driver reports the backend in use.
func (db *DB) Driver() Driver {
	return db.driver
}

// Ping checks that the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites ? placeholders into $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn inside a transaction, committing on success and rolling back otherwise.
func (db *DB) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op+": begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op+": commit", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
