package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/settings"
)

// MaxPageSize caps message and tool-event pagination.
const MaxPageSize = 200

// Repository is the durable session store. Implementations are safe for
// concurrent use; every call is a single transaction and there is no
// cross-call transactional composition.
type Repository interface {
	// CreateSession inserts a new session and returns its id.
	CreateSession(ctx context.Context, clientID *string, s settings.SessionSettings) (uuid.UUID, error)

	// DeleteSession removes a session and, via cascade, its messages,
	// tool events, and context items. It reports whether the session
	// existed.
	DeleteSession(ctx context.Context, id uuid.UUID) (bool, error)

	// ListSessions returns all session ids ordered by created_at DESC.
	ListSessions(ctx context.Context) ([]uuid.UUID, error)

	// GetSession loads a session with its settings and full logs.
	// Returns ErrNotFound when the id is unknown.
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)

	// UpdateSettings replaces a session's settings.
	UpdateSettings(ctx context.Context, id uuid.UUID, s settings.SessionSettings) error

	AppendMessage(ctx context.Context, id uuid.UUID, msg Message) error
	AppendToolEvent(ctx context.Context, id uuid.UUID, ev ToolEvent) error
	AddContextItem(ctx context.Context, id uuid.UUID, kind, reference, content string, size int64) error

	// ListMessages and ListToolEvents page through a session's logs in
	// created_at ASC order (insertion order breaking ties). limit is
	// clamped to MaxPageSize.
	ListMessages(ctx context.Context, id uuid.UUID, offset, limit int) ([]Message, error)
	ListToolEvents(ctx context.Context, id uuid.UUID, offset, limit int) ([]ToolEvent, error)
	ListContextItems(ctx context.Context, id uuid.UUID) ([]ContextItem, error)

	// UpsertRule inserts or replaces a global rule.
	UpsertRule(ctx context.Context, name, content string) error
	// GetRule returns a rule by name, or ErrNotFound.
	GetRule(ctx context.Context, name string) (*Rule, error)

	Close() error
}
