package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/store"
)

// sessionExists guards appends so child rows always reference a session.
// Foreign keys enforce this too; checking first turns the constraint
// violation into store.ErrNotFound.
func sessionExists(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	return err
}

func (d *DB) AppendMessage(ctx context.Context, id uuid.UUID, msg store.Message) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, content_summary, model_used, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID.String(), id.String(), msg.Role, msg.ContentSummary, msg.ModelUsed, formatTime(msg.CreatedAt),
		)
		return err
	})
}

func (d *DB) AppendToolEvent(ctx context.Context, id uuid.UUID, ev store.ToolEvent) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tool_events (id, session_id, tool, summary, status, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID.String(), id.String(), ev.Tool, ev.Summary, ev.Status, ev.Error, formatTime(ev.CreatedAt),
		)
		return err
	})
}

func (d *DB) AddContextItem(ctx context.Context, id uuid.UUID, kind, reference, content string, size int64) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO context_items (id, session_id, kind, reference, content, size, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), id.String(), kind, reference, content, size, formatTime(time.Now()),
		)
		return err
	})
}

const selectMessages = `
	SELECT id, role, content_summary, model_used, created_at
	FROM messages WHERE session_id = ?
	ORDER BY created_at ASC, rowid ASC`

const selectToolEvents = `
	SELECT id, tool, summary, status, error, created_at
	FROM tool_events WHERE session_id = ?
	ORDER BY created_at ASC, rowid ASC`

func (d *DB) ListMessages(ctx context.Context, id uuid.UUID, offset, limit int) ([]store.Message, error) {
	offset, limit = clampPage(offset, limit)
	return d.queryMessages(ctx, selectMessages+` LIMIT ? OFFSET ?`, id.String(), limit, offset)
}

func (d *DB) allMessages(ctx context.Context, id uuid.UUID) ([]store.Message, error) {
	return d.queryMessages(ctx, selectMessages, id.String())
}

func (d *DB) queryMessages(ctx context.Context, query string, args ...any) ([]store.Message, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var (
			m         store.Message
			rawID     string
			modelUsed sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rawID, &m.Role, &m.ContentSummary, &modelUsed, &createdAt); err != nil {
			return nil, err
		}
		m.ID, _ = uuid.Parse(rawID)
		if modelUsed.Valid {
			m.ModelUsed = &modelUsed.String
		}
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) ListToolEvents(ctx context.Context, id uuid.UUID, offset, limit int) ([]store.ToolEvent, error) {
	offset, limit = clampPage(offset, limit)
	return d.queryToolEvents(ctx, selectToolEvents+` LIMIT ? OFFSET ?`, id.String(), limit, offset)
}

func (d *DB) allToolEvents(ctx context.Context, id uuid.UUID) ([]store.ToolEvent, error) {
	return d.queryToolEvents(ctx, selectToolEvents, id.String())
}

func (d *DB) queryToolEvents(ctx context.Context, query string, args ...any) ([]store.ToolEvent, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ToolEvent
	for rows.Next() {
		var (
			ev        store.ToolEvent
			rawID     string
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rawID, &ev.Tool, &ev.Summary, &ev.Status, &errText, &createdAt); err != nil {
			return nil, err
		}
		ev.ID, _ = uuid.Parse(rawID)
		if errText.Valid {
			ev.Error = &errText.String
		}
		ev.CreatedAt = parseTime(createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (d *DB) ListContextItems(ctx context.Context, id uuid.UUID) ([]store.ContextItem, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, kind, reference, content, size, created_at
		FROM context_items WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC`,
		id.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ContextItem
	for rows.Next() {
		var (
			ci        store.ContextItem
			rawID     string
			createdAt string
		)
		if err := rows.Scan(&rawID, &ci.Kind, &ci.Reference, &ci.Content, &ci.Size, &createdAt); err != nil {
			return nil, err
		}
		ci.ID, _ = uuid.Parse(rawID)
		ci.CreatedAt = parseTime(createdAt)
		out = append(out, ci)
	}
	return out, rows.Err()
}
