package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/agent"
	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
	"github.com/atc-agent/atc/internal/tools"
)

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "invalid session id")
	}
	return id, nil
}

type sessionHandler struct {
	repo store.Repository
}

type createSessionBody struct {
	ClientID *string                   `json:"client_id"`
	Settings *settings.SessionSettings `json:"settings"`
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var body createSessionBody
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	var s settings.SessionSettings
	if body.Settings != nil {
		s = *body.Settings
	}
	id, err := h.repo.CreateSession(r.Context(), body.ClientID, s)
	if err != nil {
		writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "create session"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	ids, err := h.repo.ListSessions(r.Context())
	if err != nil {
		writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "list sessions"))
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	existed, err := h.repo.DeleteSession(r.Context(), id)
	if err != nil {
		writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "delete session"))
		return
	}
	if !existed {
		writeError(w, toolerrors.New(toolerrors.KindSessionNotFound, "session %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionHandler) loadSession(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	sess, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, toolerrors.New(toolerrors.KindSessionNotFound, "session %s not found", id))
		} else {
			writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "load session"))
		}
		return nil, false
	}
	return sess, true
}

func (h *sessionHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Settings)
}

func (h *sessionHandler) patchSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var patch settings.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, "invalid settings patch")
		return
	}
	sess.Settings.Apply(patch)
	if err := h.repo.UpdateSettings(r.Context(), sess.ID, sess.Settings); err != nil {
		writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "update settings"))
		return
	}
	writeJSON(w, http.StatusOK, sess.Settings)
}

func (h *sessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("cursor"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = store.MaxPageSize
	}

	switch kind := q.Get("kind"); kind {
	case "", "messages":
		msgs, err := h.repo.ListMessages(r.Context(), id, offset, limit)
		if err != nil {
			writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "list messages"))
			return
		}
		if msgs == nil {
			msgs = []store.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs, "next_cursor": offset + len(msgs)})
	case "tools":
		events, err := h.repo.ListToolEvents(r.Context(), id, offset, limit)
		if err != nil {
			writeError(w, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "list tool events"))
			return
		}
		if events == nil {
			events = []store.ToolEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"tool_events": events, "next_cursor": offset + len(events)})
	default:
		writeBadRequest(w, "kind must be messages or tools")
	}
}

type messageHandler struct {
	engine *agent.Engine
}

type postMessageBody struct {
	Role         string                 `json:"role"`
	Content      string                 `json:"content"`
	Model        *string                `json:"model"`
	Generate     bool                   `json:"generate"`
	ModelParams  *settings.ModelParams  `json:"model_params"`
	ToolPolicies *settings.ToolPolicies `json:"tool_policies"`
}

func (h *messageHandler) post(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body postMessageBody
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	res, err := h.engine.PostMessage(r.Context(), id, agent.PostRequest{
		Role:     body.Role,
		Content:  body.Content,
		Generate: body.Generate || body.Model != nil,
		Overrides: settings.RequestOverrides{
			Model:        body.Model,
			ModelParams:  body.ModelParams,
			ToolPolicies: body.ToolPolicies,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type toolHandler struct {
	runtime *tools.Runtime
}

func (h *toolHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := r.PathValue("tool")
	args := map[string]any{}
	if err := decodeJSON(r, &args); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	res, err := h.runtime.Dispatch(r.Context(), id, name, args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// includeURL is sugar for dispatching the include_url tool.
func (h *toolHandler) includeURL(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	args := map[string]any{}
	if err := decodeJSON(r, &args); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	res, err := h.runtime.Dispatch(r.Context(), id, "include_url", args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type healthHandler struct {
	repo store.Repository
}

func (h *healthHandler) check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
