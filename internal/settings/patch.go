package settings

import "encoding/json"

// Opt is a two-level option for patch fields. A field that is absent from
// the request body leaves Present false ("do not touch"); an explicit JSON
// null sets Present with a nil Value ("clear"); anything else sets both
// ("set"). The distinction is load-bearing: it is how clients tell
// "untouched" apart from "removed".
type Opt[T any] struct {
	Present bool
	Value   *T
}

// Set returns an Opt carrying v.
func Set[T any](v T) Opt[T] { return Opt[T]{Present: true, Value: &v} }

// Clear returns an Opt that clears the target field.
func Clear[T any]() Opt[T] { return Opt[T]{Present: true} }

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Present = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// IsZero reports absence so the omitzero tag drops untouched fields on
// encode; without it a re-encoded patch would turn "untouched" into
// "clear".
func (o Opt[T]) IsZero() bool { return !o.Present }

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// ModelParamsPatch patches ModelParams field by field.
type ModelParamsPatch struct {
	Temperature Opt[float64] `json:"temperature,omitzero"`
	MaxTokens   Opt[uint32]  `json:"max_tokens,omitzero"`
	TopP        Opt[float64] `json:"top_p,omitzero"`
}

// ToolPoliciesPatch patches ToolPolicies field by field.
type ToolPoliciesPatch struct {
	DryRun       Opt[bool]   `json:"dry_run,omitzero"`
	MaxReadBytes Opt[uint64] `json:"max_read_bytes,omitzero"`
}

// Patch is the wire form of a settings update. Nested patches are plain
// pointers: an absent nested object leaves the whole struct alone, a
// present one patches its inner fields individually.
type Patch struct {
	DefaultModel     Opt[string]        `json:"default_model,omitzero"`
	ModelParams      *ModelParamsPatch  `json:"model_params,omitempty"`
	ProjectRoot      Opt[string]        `json:"project_root,omitzero"`
	ToolPolicies     *ToolPoliciesPatch `json:"tool_policies,omitempty"`
	NetworkAllowlist Opt[[]string]      `json:"network_allowlist,omitzero"`
}

// Apply mutates s in place: present patch fields overwrite or clear,
// absent fields preserve. Missing inner fields of a nested patch preserve
// the prior nested value.
func (s *SessionSettings) Apply(p Patch) {
	if p.DefaultModel.Present {
		s.DefaultModel = p.DefaultModel.Value
	}
	if p.ModelParams != nil {
		current := ModelParams{}
		if s.ModelParams != nil {
			current = *s.ModelParams
		}
		if p.ModelParams.Temperature.Present {
			current.Temperature = p.ModelParams.Temperature.Value
		}
		if p.ModelParams.MaxTokens.Present {
			current.MaxTokens = p.ModelParams.MaxTokens.Value
		}
		if p.ModelParams.TopP.Present {
			current.TopP = p.ModelParams.TopP.Value
		}
		s.ModelParams = &current
	}
	if p.ProjectRoot.Present {
		s.ProjectRoot = p.ProjectRoot.Value
	}
	if p.ToolPolicies != nil {
		current := ToolPolicies{}
		if s.ToolPolicies != nil {
			current = *s.ToolPolicies
		}
		if p.ToolPolicies.DryRun.Present {
			current.DryRun = p.ToolPolicies.DryRun.Value
		}
		if p.ToolPolicies.MaxReadBytes.Present {
			current.MaxReadBytes = p.ToolPolicies.MaxReadBytes.Value
		}
		s.ToolPolicies = &current
	}
	if p.NetworkAllowlist.Present {
		s.NetworkAllowlist = p.NetworkAllowlist.Value
	}
}
