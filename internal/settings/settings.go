// Package settings holds the per-session configuration model, its
// three-valued patch semantics, and the global/session/request resolution.
package settings

// ModelParams are optional generation parameters passed to the model
// provider. Nil means "not set at this layer".
type ModelParams struct {
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   *uint32  `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
}

// ToolPolicies gate the behavior of mutating and reading tools.
type ToolPolicies struct {
	DryRun       *bool   `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	MaxReadBytes *uint64 `json:"max_read_bytes,omitempty" yaml:"max_read_bytes,omitempty"`
}

// SessionSettings is the durable per-session configuration. Every field is
// optional so the layered resolution can fall through to global defaults.
//
// NetworkAllowlist nil and an empty list both deny all outbound hosts; the
// pointer exists so a patch can distinguish "clear" from "leave unchanged".
type SessionSettings struct {
	DefaultModel     *string       `json:"default_model,omitempty"`
	ModelParams      *ModelParams  `json:"model_params,omitempty"`
	ProjectRoot      *string       `json:"project_root,omitempty"`
	ToolPolicies     *ToolPolicies `json:"tool_policies,omitempty"`
	NetworkAllowlist *[]string     `json:"network_allowlist,omitempty"`
}

// GlobalDefaults is the lowest settings layer, loaded from the server
// config file. Project root and allowlist are session-only concerns and
// have no global layer.
type GlobalDefaults struct {
	DefaultModel *string       `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	ModelParams  *ModelParams  `json:"model_params,omitempty" yaml:"model_params,omitempty"`
	ToolPolicies *ToolPolicies `json:"tool_policies,omitempty" yaml:"tool_policies,omitempty"`
}

// RequestOverrides is the highest settings layer, supplied per request.
type RequestOverrides struct {
	Model        *string       `json:"model,omitempty"`
	ModelParams  *ModelParams  `json:"model_params,omitempty"`
	ToolPolicies *ToolPolicies `json:"tool_policies,omitempty"`
}

// Effective is the materialized view of the three layers for one request.
type Effective struct {
	Model        *string      `json:"model,omitempty"`
	ModelParams  ModelParams  `json:"model_params"`
	ProjectRoot  *string      `json:"project_root,omitempty"`
	ToolPolicies ToolPolicies `json:"tool_policies"`
}

// Resolve materializes effective settings by picking, per scalar, the first
// value present in request, then session, then global. Nested structs
// resolve field by field: a request that sets only temperature does not
// erase the session's max_tokens.
func Resolve(global GlobalDefaults, session SessionSettings, request RequestOverrides) Effective {
	eff := Effective{
		Model:       firstString(request.Model, session.DefaultModel, global.DefaultModel),
		ProjectRoot: session.ProjectRoot,
	}

	eff.ModelParams.Temperature = firstFloat(
		paramsField(request.ModelParams, func(p *ModelParams) *float64 { return p.Temperature }),
		paramsField(session.ModelParams, func(p *ModelParams) *float64 { return p.Temperature }),
		paramsField(global.ModelParams, func(p *ModelParams) *float64 { return p.Temperature }),
	)
	eff.ModelParams.MaxTokens = firstUint32(
		u32Field(request.ModelParams), u32Field(session.ModelParams), u32Field(global.ModelParams),
	)
	eff.ModelParams.TopP = firstFloat(
		paramsField(request.ModelParams, func(p *ModelParams) *float64 { return p.TopP }),
		paramsField(session.ModelParams, func(p *ModelParams) *float64 { return p.TopP }),
		paramsField(global.ModelParams, func(p *ModelParams) *float64 { return p.TopP }),
	)

	eff.ToolPolicies.DryRun = firstBool(
		policyBool(request.ToolPolicies), policyBool(session.ToolPolicies), policyBool(global.ToolPolicies),
	)
	eff.ToolPolicies.MaxReadBytes = firstUint64(
		policyBytes(request.ToolPolicies), policyBytes(session.ToolPolicies), policyBytes(global.ToolPolicies),
	)
	return eff
}

func paramsField(p *ModelParams, get func(*ModelParams) *float64) *float64 {
	if p == nil {
		return nil
	}
	return get(p)
}

func u32Field(p *ModelParams) *uint32 {
	if p == nil {
		return nil
	}
	return p.MaxTokens
}

func policyBool(p *ToolPolicies) *bool {
	if p == nil {
		return nil
	}
	return p.DryRun
}

func policyBytes(p *ToolPolicies) *uint64 {
	if p == nil {
		return nil
	}
	return p.MaxReadBytes
}

func firstString(vs ...*string) *string {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstFloat(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstUint32(vs ...*uint32) *uint32 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstUint64(vs ...*uint64) *uint64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(vs ...*bool) *bool {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
