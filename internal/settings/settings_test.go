package settings

import (
	"encoding/json"
	"reflect"
	"testing"
)

func strp(s string) *string    { return &s }
func f64p(f float64) *float64  { return &f }
func u32p(u uint32) *uint32    { return &u }
func u64p(u uint64) *uint64    { return &u }
func boolp(b bool) *bool       { return &b }

func TestResolve_RequestOverSessionOverGlobal(t *testing.T) {
	global := GlobalDefaults{
		DefaultModel: strp("global-model"),
		ModelParams:  &ModelParams{Temperature: f64p(0.1), MaxTokens: u32p(1000), TopP: f64p(0.9)},
		ToolPolicies: &ToolPolicies{DryRun: boolp(true), MaxReadBytes: u64p(1024)},
	}
	session := SessionSettings{
		DefaultModel: strp("session-model"),
		ModelParams:  &ModelParams{Temperature: f64p(0.2)},
		ProjectRoot:  strp("/repo"),
		ToolPolicies: &ToolPolicies{DryRun: boolp(false)},
	}
	request := RequestOverrides{
		Model:        strp("request-model"),
		ModelParams:  &ModelParams{MaxTokens: u32p(2048)},
		ToolPolicies: &ToolPolicies{MaxReadBytes: u64p(2048)},
	}

	eff := Resolve(global, session, request)

	if got := *eff.Model; got != "request-model" {
		t.Errorf("model = %q, want request-model", got)
	}
	if got := *eff.ModelParams.Temperature; got != 0.2 {
		t.Errorf("temperature = %v, want 0.2 (session)", got)
	}
	if got := *eff.ModelParams.MaxTokens; got != 2048 {
		t.Errorf("max_tokens = %v, want 2048 (request)", got)
	}
	if got := *eff.ModelParams.TopP; got != 0.9 {
		t.Errorf("top_p = %v, want 0.9 (global)", got)
	}
	if got := *eff.ProjectRoot; got != "/repo" {
		t.Errorf("project_root = %q", got)
	}
	if got := *eff.ToolPolicies.DryRun; got != false {
		t.Errorf("dry_run = %v, want false (session)", got)
	}
	if got := *eff.ToolPolicies.MaxReadBytes; got != 2048 {
		t.Errorf("max_read_bytes = %v, want 2048 (request)", got)
	}
}

func TestResolve_EmptyLayers(t *testing.T) {
	eff := Resolve(GlobalDefaults{}, SessionSettings{}, RequestOverrides{})
	if eff.Model != nil || eff.ProjectRoot != nil {
		t.Errorf("expected nil model and root, got %+v", eff)
	}
	if eff.ModelParams.Temperature != nil || eff.ToolPolicies.DryRun != nil {
		t.Errorf("expected empty nested fields, got %+v", eff)
	}
}

func TestApply_NestedFieldsAndClear(t *testing.T) {
	s := SessionSettings{
		DefaultModel:     strp("gpt-4"),
		ModelParams:      &ModelParams{Temperature: f64p(0.5), MaxTokens: u32p(1024), TopP: f64p(1.0)},
		ProjectRoot:      strp("/repo"),
		ToolPolicies:     &ToolPolicies{DryRun: boolp(true), MaxReadBytes: u64p(1024)},
		NetworkAllowlist: &[]string{"example.com"},
	}

	s.Apply(Patch{
		DefaultModel: Set("gpt-4o"),
		ModelParams: &ModelParamsPatch{
			Temperature: Set(0.2),
			MaxTokens:   Clear[uint32](),
		},
		ProjectRoot: Clear[string](),
		ToolPolicies: &ToolPoliciesPatch{
			DryRun:       Set(false),
			MaxReadBytes: Set(uint64(2048)),
		},
		NetworkAllowlist: Set([]string{"docs.rs"}),
	})

	if got := *s.DefaultModel; got != "gpt-4o" {
		t.Errorf("default_model = %q", got)
	}
	if got := *s.ModelParams.Temperature; got != 0.2 {
		t.Errorf("temperature = %v", got)
	}
	if s.ModelParams.MaxTokens != nil {
		t.Errorf("max_tokens should be cleared, got %v", *s.ModelParams.MaxTokens)
	}
	if got := *s.ModelParams.TopP; got != 1.0 {
		t.Errorf("top_p should be unchanged, got %v", got)
	}
	if s.ProjectRoot != nil {
		t.Errorf("project_root should be cleared, got %v", *s.ProjectRoot)
	}
	if got := *s.ToolPolicies.DryRun; got != false {
		t.Errorf("dry_run = %v", got)
	}
	if got := *s.ToolPolicies.MaxReadBytes; got != 2048 {
		t.Errorf("max_read_bytes = %v", got)
	}
	if got := *s.NetworkAllowlist; !reflect.DeepEqual(got, []string{"docs.rs"}) {
		t.Errorf("network_allowlist = %v", got)
	}
}

func TestApply_EmptyPatchIsIdentity(t *testing.T) {
	orig := SessionSettings{
		DefaultModel:     strp("m"),
		ModelParams:      &ModelParams{Temperature: f64p(0.7)},
		ProjectRoot:      strp("/p"),
		ToolPolicies:     &ToolPolicies{DryRun: boolp(true)},
		NetworkAllowlist: &[]string{"a", "b"},
	}
	s := orig
	s.Apply(Patch{})
	if !reflect.DeepEqual(s, orig) {
		t.Errorf("empty patch changed settings: %+v != %+v", s, orig)
	}
}

func TestPatch_WireDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, p Patch)
	}{
		{
			name: "absent field untouched",
			body: `{}`,
			want: func(t *testing.T, p Patch) {
				if p.DefaultModel.Present || p.ProjectRoot.Present || p.ModelParams != nil {
					t.Errorf("fields should be absent: %+v", p)
				}
			},
		},
		{
			name: "explicit null clears",
			body: `{"project_root": null}`,
			want: func(t *testing.T, p Patch) {
				if !p.ProjectRoot.Present || p.ProjectRoot.Value != nil {
					t.Errorf("null should decode as present-nil: %+v", p.ProjectRoot)
				}
			},
		},
		{
			name: "value sets",
			body: `{"project_root": "/tmp/x", "tool_policies": {"dry_run": false}}`,
			want: func(t *testing.T, p Patch) {
				if *p.ProjectRoot.Value != "/tmp/x" {
					t.Errorf("project_root = %+v", p.ProjectRoot)
				}
				if p.ToolPolicies == nil || !p.ToolPolicies.DryRun.Present || *p.ToolPolicies.DryRun.Value != false {
					t.Errorf("tool_policies = %+v", p.ToolPolicies)
				}
				if p.ToolPolicies.MaxReadBytes.Present {
					t.Error("max_read_bytes should be absent")
				}
			},
		},
		{
			name: "allowlist null clears",
			body: `{"network_allowlist": null}`,
			want: func(t *testing.T, p Patch) {
				if !p.NetworkAllowlist.Present || p.NetworkAllowlist.Value != nil {
					t.Errorf("network_allowlist = %+v", p.NetworkAllowlist)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			tt.want(t, p)
		})
	}
}

func TestPatch_WireEncoding(t *testing.T) {
	// Re-encoding keeps the three states apart: set as value, clear as
	// null, untouched omitted entirely.
	p := Patch{
		DefaultModel: Set("gpt-4o"),
		ProjectRoot:  Clear[string](),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"default_model":"gpt-4o","project_root":null}`
	if string(raw) != want {
		t.Errorf("encoded patch = %s, want %s", raw, want)
	}

	var back Patch
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.DefaultModel.Present || *back.DefaultModel.Value != "gpt-4o" {
		t.Errorf("default_model = %+v", back.DefaultModel)
	}
	if !back.ProjectRoot.Present || back.ProjectRoot.Value != nil {
		t.Errorf("project_root = %+v", back.ProjectRoot)
	}
	if back.NetworkAllowlist.Present {
		t.Error("network_allowlist should stay absent")
	}
}
