// Package toolerrors defines the stable failure taxonomy for session and
// tool operations. Kinds survive the trip through the transport layer: the
// HTTP adapter maps each kind to a status code, and policy failures
// (ConfigMissing, PathEscape, ForbiddenHost) are never downgraded.
package toolerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure mode.
type Kind string

const (
	KindSessionNotFound Kind = "session_not_found"
	KindUnknownTool     Kind = "unknown_tool"
	KindBadArgs         Kind = "bad_args"
	KindConfigMissing   Kind = "config_missing"
	KindPathEscape      Kind = "path_escape"
	KindForbiddenHost   Kind = "forbidden_host"
	KindNotFound        Kind = "not_found"
	KindUpstreamFailure Kind = "upstream_failure"
	KindStorageFailure  Kind = "storage_failure"
)

// Error is a failure with a stable kind. The wrapped cause, when present,
// is reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an Error of the given kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// HTTPStatus maps a kind to the status code the transport should use.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindSessionNotFound:
		return http.StatusNotFound
	case KindUnknownTool, KindBadArgs, KindConfigMissing, KindPathEscape, KindNotFound:
		return http.StatusBadRequest
	case KindForbiddenHost:
		return http.StatusForbidden
	case KindUpstreamFailure:
		return http.StatusBadGateway
	case KindStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
