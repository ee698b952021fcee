// Package tools defines the tool contract, the fixed registry of
// built-ins, and the dispatch runtime that records every invocation in
// the session's tool-event log.
package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
)

// Tool is one built-in capability. Run may suspend on I/O and must honor
// ctx cancellation.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error)
}

// Context is the per-dispatch view handed to a tool: the repository, the
// session it runs for, and that session's current settings.
type Context struct {
	Repo      store.Repository
	SessionID uuid.UUID
	Settings  settings.SessionSettings
}

// Result is what a successful tool run returns. Summary goes to the
// tool-event log; Data is the structured payload returned to the caller.
type Result struct {
	Summary string `json:"summary"`
	Data    any    `json:"data,omitempty"`
}

// ProjectRoot returns the session's project root or ConfigMissing when
// the session never set one. Every filesystem tool starts here.
func (tc *Context) ProjectRoot() (string, error) {
	if tc.Settings.ProjectRoot == nil || *tc.Settings.ProjectRoot == "" {
		return "", toolerrors.New(toolerrors.KindConfigMissing, "project_root is not set for this session")
	}
	return *tc.Settings.ProjectRoot, nil
}

// DryRun resolves the effective dry-run flag: an explicit request value
// wins, then the session policy, then true. Mutating tools stay inert
// unless someone opted in.
func (tc *Context) DryRun(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	if tc.Settings.ToolPolicies != nil && tc.Settings.ToolPolicies.DryRun != nil {
		return *tc.Settings.ToolPolicies.DryRun
	}
	return true
}

// MaxReadBytes caps a requested read size by the session policy when one
// is set.
func (tc *Context) MaxReadBytes(requested uint64) uint64 {
	if tc.Settings.ToolPolicies != nil && tc.Settings.ToolPolicies.MaxReadBytes != nil {
		if cap := *tc.Settings.ToolPolicies.MaxReadBytes; requested > cap {
			return cap
		}
	}
	return requested
}
