package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/atc-agent/atc/internal/store"
)

func (d *DB) UpsertRule(ctx context.Context, name, content string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO rules (name, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		name, content, formatTime(time.Now()),
	)
	return err
}

func (d *DB) GetRule(ctx context.Context, name string) (*store.Rule, error) {
	var (
		r         store.Rule
		updatedAt string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT name, content, updated_at FROM rules WHERE name = ?`, name,
	).Scan(&r.Name, &r.Content, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
