package elfscope_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elfscope/elfscope"
)

func TestDefaultConfig(t *testing.T) {
	cfg := elfscope.DefaultConfig()

	if cfg.RecursionDepth != 10 {
		t.Errorf("recursion depth = %d, want 10", cfg.RecursionDepth)
	}
	if cfg.TailCallPolicy != elfscope.TailCallReusesCallerFrame {
		t.Errorf("tail call policy = %q, want reuse_caller_frame", cfg.TailCallPolicy)
	}
	if cfg.MaxPathDepth != 10 {
		t.Errorf("max path depth = %d, want 10", cfg.MaxPathDepth)
	}
	if !cfg.Demangle {
		t.Error("demangle should default to true")
	}
	if cfg.ExternalStackBudget == 0 {
		t.Error("external stack budget should be non-zero")
	}
}

func TestLoadConfig_MissingPathFallsBackToDefault(t *testing.T) {
	cfg, err := elfscope.LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != elfscope.DefaultConfig() {
		t.Errorf("expected default config for missing path, got %+v", cfg)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elfscope.toml")
	contents := `
[stack]
external_stack_budget = 32
recursion_depth = 5
tail_call_policy = "add_caller_frame"

[paths]
max_path_depth = 3

[symbols]
demangle = false
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := elfscope.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ExternalStackBudget != 32 {
		t.Errorf("external stack budget = %d, want 32", cfg.ExternalStackBudget)
	}
	if cfg.RecursionDepth != 5 {
		t.Errorf("recursion depth = %d, want 5", cfg.RecursionDepth)
	}
	if cfg.TailCallPolicy != elfscope.TailCallAddsCallerFrame {
		t.Errorf("tail call policy = %q, want add_caller_frame", cfg.TailCallPolicy)
	}
	if cfg.MaxPathDepth != 3 {
		t.Errorf("max path depth = %d, want 3", cfg.MaxPathDepth)
	}
	if cfg.Demangle {
		t.Error("demangle should be false per override")
	}
}

func TestLoadConfig_UnparsableFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not valid toml [["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := elfscope.LoadConfig(path); err == nil {
		t.Fatal("expected an error for unparsable config")
	}
}
