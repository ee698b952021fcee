// Package sqlite is the SQLite-backed store.Repository. One writer
// connection, WAL journaling with full synchronous writes, and a bounded
// busy wait keep the single-node store durable across process and OS
// crashes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atc-agent/atc/internal/store"
	_ "modernc.org/sqlite"
)

// Compile-time check that DB satisfies store.Repository.
var _ store.Repository = (*DB)(nil)

// DB is the SQLite-backed repository.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// pending migrations. Migrations are idempotent: reopening an up-to-date
// database is a no-op.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{db: db}, nil
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// withTx runs fn inside a transaction.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
