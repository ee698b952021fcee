package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ATC_LISTEN", "")
	t.Setenv("ATC_DB_PATH", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:7171" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join("air_traffic_control", "atc.db")) {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if _, err := os.Stat(filepath.Dir(cfg.DBPath)); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ATC_LISTEN", "127.0.0.1:9999")
	t.Setenv("ATC_DB_PATH", filepath.Join(dir, "custom.db"))

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:9999" || cfg.DBPath != filepath.Join(dir, "custom.db") {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ATC_LISTEN", "")
	t.Setenv("ATC_DB_PATH", "")

	path := filepath.Join(dir, "atc.yaml")
	body := "listen: 0.0.0.0:8000\ndb_path: " + filepath.Join(dir, "file.db") + "\ndefaults:\n  default_model: gpt-test\n  tool_policies:\n    dry_run: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "0.0.0.0:8000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Defaults.DefaultModel == nil || *cfg.Defaults.DefaultModel != "gpt-test" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Defaults.ToolPolicies == nil || cfg.Defaults.ToolPolicies.DryRun == nil || *cfg.Defaults.ToolPolicies.DryRun {
		t.Errorf("tool policies = %+v", cfg.Defaults.ToolPolicies)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
