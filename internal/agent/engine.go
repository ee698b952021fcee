// Package agent implements the message posting flow: summarize, persist,
// optionally generate a model reply, persist that too.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atc-agent/atc/internal/providers"
	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
)

// maxSummaryChars bounds content_summary; full content is never stored.
const maxSummaryChars = 200

var tracer = otel.Tracer("atc/agent")

// Engine posts messages against sessions. The model is optional; without
// one, posting only records the user message.
type Engine struct {
	repo    store.Repository
	model   providers.LanguageModel
	globals settings.GlobalDefaults
}

func NewEngine(repo store.Repository, model providers.LanguageModel, globals settings.GlobalDefaults) *Engine {
	return &Engine{repo: repo, model: model, globals: globals}
}

// PostRequest is one message post. Role defaults to "user". Generate
// asks for a model reply; Overrides layer on top of session and global
// settings for this call only.
type PostRequest struct {
	Role      string
	Content   string
	Generate  bool
	Overrides settings.RequestOverrides
}

// PostResult reports what was appended.
type PostResult struct {
	UserMessage      store.Message  `json:"user_message"`
	AssistantMessage *store.Message `json:"assistant_message,omitempty"`
}

// PostMessage appends the user message, then, when generation was
// requested and a model is resolvable, calls the provider and appends
// the assistant reply. The user message survives a failed model call.
func (e *Engine) PostMessage(ctx context.Context, sessionID uuid.UUID, req PostRequest) (*PostResult, error) {
	ctx, span := tracer.Start(ctx, "agent.post_message")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID.String()))

	if req.Content == "" {
		return nil, toolerrors.New(toolerrors.KindBadArgs, "content is required")
	}

	sess, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, toolerrors.New(toolerrors.KindSessionNotFound, "session %s not found", sessionID)
		}
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "load session")
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	// Timestamps are set here, not defaulted by the store, so the
	// returned messages match what a later history read shows.
	userMsg := store.Message{
		ID:             uuid.New(),
		Role:           role,
		ContentSummary: Summarize(req.Content),
		CreatedAt:      time.Now(),
	}
	if err := e.repo.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "append user message")
	}
	res := &PostResult{UserMessage: userMsg}

	if !req.Generate || e.model == nil {
		return res, nil
	}

	eff := settings.Resolve(e.globals, sess.Settings, req.Overrides)
	if eff.Model == nil {
		return nil, toolerrors.New(toolerrors.KindConfigMissing, "no model configured for this session")
	}

	reply, err := e.model.Generate(ctx, providers.GenerateRequest{
		Model:       *eff.Model,
		Prompt:      req.Content,
		Temperature: eff.ModelParams.Temperature,
		MaxTokens:   eff.ModelParams.MaxTokens,
		TopP:        eff.ModelParams.TopP,
	})
	if err != nil {
		slog.Warn("model call failed", "session_id", sessionID, "model", *eff.Model, "error", err)
		return nil, err
	}

	modelUsed := reply.Model
	if modelUsed == "" {
		modelUsed = *eff.Model
	}
	asst := store.Message{
		ID:             uuid.New(),
		Role:           "assistant",
		ContentSummary: Summarize(reply.Content),
		ModelUsed:      &modelUsed,
		CreatedAt:      time.Now(),
	}
	if err := e.repo.AppendMessage(ctx, sessionID, asst); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "append assistant message")
	}
	res.AssistantMessage = &asst
	return res, nil
}

// Summarize truncates content to at most 200 characters on a rune
// boundary, marking the cut with an ellipsis.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= maxSummaryChars {
		return content
	}
	return string(runes[:maxSummaryChars-1]) + "…"
}
