// Package store defines the durable session repository: sessions with
// mutable settings plus append-only message and tool-event logs.
package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/settings"
)

// Tool event statuses. Error text is populated iff status is error.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Context item kinds.
const (
	KindFile = "file"
	KindURL  = "url"
)

// Session is one client's durable context. Messages and ToolHistory are
// ordered by created_at with insertion order breaking ties.
type Session struct {
	ID          uuid.UUID                `json:"id"`
	ClientID    *string                  `json:"client_id,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	Settings    settings.SessionSettings `json:"settings"`
	Messages    []Message                `json:"messages"`
	ToolHistory []ToolEvent              `json:"tool_history"`
}

// Message records a posted message. ContentSummary holds at most 200
// characters of the content; the full content is deliberately not stored.
type Message struct {
	ID             uuid.UUID `json:"id"`
	Role           string    `json:"role"`
	ContentSummary string    `json:"content_summary"`
	ModelUsed      *string   `json:"model_used,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToolEvent is one entry of a session's tool audit trail.
type ToolEvent struct {
	ID        uuid.UUID `json:"id"`
	Tool      string    `json:"tool"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ContextItem is a file or URL capture attached to a session.
type ContextItem struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	Content   string    `json:"content"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Rule is global guidance text keyed by name, with upsert semantics.
type Rule struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
