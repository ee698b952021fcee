package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/store"
)

func (d *DB) CreateSession(ctx context.Context, clientID *string, s settings.SessionSettings) (uuid.UUID, error) {
	id := uuid.New()
	settingsJSON, err := json.Marshal(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal settings: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO sessions (id, client_id, created_at, settings_json)
		VALUES (?, ?, ?, ?)`,
		id.String(), clientID, formatTime(time.Now()), string(settingsJSON),
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (d *DB) DeleteSession(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) GetSession(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	var (
		clientID     sql.NullString
		createdAt    string
		settingsJSON string
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT client_id, created_at, settings_json FROM sessions WHERE id = ?`,
		id.String(),
	).Scan(&clientID, &createdAt, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sess := &store.Session{ID: id, CreatedAt: parseTime(createdAt)}
	if clientID.Valid {
		sess.ClientID = &clientID.String
	}
	if err := json.Unmarshal([]byte(settingsJSON), &sess.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if sess.Messages, err = d.allMessages(ctx, id); err != nil {
		return nil, err
	}
	if sess.ToolHistory, err = d.allToolEvents(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

func (d *DB) UpdateSettings(ctx context.Context, id uuid.UUID, s settings.SessionSettings) error {
	settingsJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	res, err := d.db.ExecContext(ctx, `UPDATE sessions SET settings_json = ? WHERE id = ?`,
		string(settingsJSON), id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
