package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
)

var tracer = otel.Tracer("atc/tools")

// Runtime dispatches tool calls against sessions and records every
// outcome in the tool-event log.
type Runtime struct {
	repo     store.Repository
	registry *Registry
}

func NewRuntime(repo store.Repository, registry *Registry) *Runtime {
	return &Runtime{repo: repo, registry: registry}
}

func (rt *Runtime) Registry() *Registry { return rt.registry }

// Dispatch loads the session, runs the named tool, and appends a tool
// event. A failed run still produces an event with status=error; if that
// append fails too, the run error wins and the append failure is logged.
// Cancellation produces no event.
func (rt *Runtime) Dispatch(ctx context.Context, sessionID uuid.UUID, toolName string, args map[string]any) (*Result, error) {
	ctx, span := tracer.Start(ctx, "tools.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID.String()),
		attribute.String("tool.name", toolName),
	)

	sess, err := rt.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, toolerrors.New(toolerrors.KindSessionNotFound, "session %s not found", sessionID)
		}
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "load session")
	}

	tool, err := rt.registry.Lookup(toolName)
	if err != nil {
		return nil, err
	}

	tc := &Context{Repo: rt.repo, SessionID: sessionID, Settings: sess.Settings}
	res, runErr := tool.Run(ctx, tc, args)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			span.SetStatus(codes.Error, "canceled")
			return nil, runErr
		}
		span.SetStatus(codes.Error, runErr.Error())
		msg := runErr.Error()
		ev := store.ToolEvent{Tool: toolName, Summary: "failed", Status: store.StatusError, Error: &msg}
		if appendErr := rt.repo.AppendToolEvent(ctx, sessionID, ev); appendErr != nil {
			slog.Error("tool event append failed after tool error",
				"session_id", sessionID, "tool", toolName, "error", appendErr)
		}
		return nil, runErr
	}

	ev := store.ToolEvent{Tool: toolName, Summary: res.Summary, Status: store.StatusOK}
	if err := rt.repo.AppendToolEvent(ctx, sessionID, ev); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "append tool event")
	}
	slog.Debug("tool dispatched", "session_id", sessionID, "tool", toolName, "summary", res.Summary)
	return res, nil
}
