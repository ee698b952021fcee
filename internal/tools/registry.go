package tools

import (
	"github.com/atc-agent/atc/internal/toolerrors"
)

// Registry is the fixed, insertion-ordered set of tools built at startup.
// It is immutable after construction and safe for concurrent lookup.
type Registry struct {
	order  []Tool
	byName map[string]Tool
}

func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if _, dup := r.byName[t.Name()]; dup {
			panic("tools: duplicate tool name " + t.Name())
		}
		r.order = append(r.order, t)
		r.byName[t.Name()] = t
	}
	return r
}

// Default builds the built-in tool set in its canonical order.
func Default() *Registry {
	return NewRegistry(
		&IncludeFileTool{},
		&IncludeURLTool{},
		&AddRuleTool{},
		&DiscoveryListTool{},
		&DiscoverySearchTool{},
		&DiscoveryReadTool{},
		&FilesWriteTool{},
		&FilesMoveTool{},
		&FilesDeleteTool{},
		&GitStatusTool{},
		&GitDiffTool{},
		&GitAddAllTool{},
		&GitCommitTool{},
	)
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, toolerrors.New(toolerrors.KindUnknownTool, "unknown tool %q", name)
	}
	return t, nil
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.order))
	copy(out, r.order)
	return out
}
