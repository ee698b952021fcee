// Package api is the HTTP adapter: routing, request decoding, and the
// mapping from error kinds to status codes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/atc-agent/atc/internal/toolerrors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// errorResponse is the standard error body. Kind is stable; message is
// informational.
type errorResponse struct {
	Error string          `json:"error"`
	Kind  toolerrors.Kind `json:"kind,omitempty"`
}

// writeError maps err onto a status via its kind and writes the body.
func writeError(w http.ResponseWriter, err error) {
	kind := toolerrors.KindOf(err)
	status := http.StatusInternalServerError
	if kind != "" {
		status = toolerrors.HTTPStatus(kind)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// writeBadRequest reports a malformed request without a taxonomy kind.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: toolerrors.KindBadArgs})
}

// decodeJSON reads and decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
