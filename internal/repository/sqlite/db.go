// Package sqlite is the embedded store used for local development and tests.
// It implements the same repository interfaces as the postgres package.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New opens a SQLite database. The pool is limited to one connection so an
// in-memory database is shared by every caller and writers never contend for
// the file lock; repositories therefore must use the executor carried by the
// context while a transaction is open.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", withDefaults(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{db}, nil
}

// withDefaults appends connection parameters: foreign keys on, a busy timeout,
// immediate write transactions and a sortable time format.
func withDefaults(dsn string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
		"_time_format=sqlite",
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// EnsureSchema creates the planning tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Executor is the subset of *sql.DB and *sql.Tx the repositories use
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey struct{}

// GetExecutor returns the transaction carried by ctx, or db when none is open
func GetExecutor(ctx context.Context, db *DB) Executor {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

// OpenInMemory opens a private in-memory database with the schema applied
func OpenInMemory(ctx context.Context) (*DB, error) {
	db, err := New(":memory:")
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
