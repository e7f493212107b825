package elfscope

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.toml
var embeddedConfig []byte

// TailCallStackPolicy selects how a tail-call edge contributes to the
// caller's cumulative stack estimate. Spec leaves this as an open question
// that implementations must pick once and record in report metadata; see
// DESIGN.md.
type TailCallStackPolicy string

const (
	// TailCallReusesCallerFrame treats a tail call as reusing the caller's
	// frame: max_total_stack(caller) = max(local(caller), max_total_stack(callee)).
	TailCallReusesCallerFrame TailCallStackPolicy = "reuse_caller_frame"

	// TailCallAddsCallerFrame is the more conservative policy: the
	// caller's local frame is always added on top, as with an ordinary call.
	TailCallAddsCallerFrame TailCallStackPolicy = "add_caller_frame"
)

// Config holds the tunables the Call Analyzer and Stack Analyzer are
// parameterized by. The zero value is not valid; use [DefaultConfig].
type Config struct {
	// ExternalStackBudget is the constant number of bytes an external,
	// imported, or unresolved call target contributes to a caller's
	// cumulative stack estimate.
	ExternalStackBudget uint64

	// RecursionDepth (R) bounds the heuristic cost of entering a
	// recursive function: R * the largest local frame in its strongly
	// connected component + the best max_total_stack reachable by leaving
	// the component (for mutual recursion, at least the entry function's
	// own local frame).
	RecursionDepth int

	// TailCallPolicy selects how tail-call edges contribute to cumulative
	// stack. See [TailCallStackPolicy].
	TailCallPolicy TailCallStackPolicy

	// MaxPathDepth is the default depth bound (in edges) applied to path
	// enumeration when the caller does not specify one.
	MaxPathDepth int

	// Demangle enables best-effort C++/Rust name demangling in the Loader.
	Demangle bool
}

// tomlConfig mirrors config.toml's on-disk shape; [Config] itself stays a
// flat struct since every other component references its fields directly.
type tomlConfig struct {
	Stack struct {
		ExternalStackBudget uint64 `toml:"external_stack_budget"`
		RecursionDepth      int    `toml:"recursion_depth"`
		TailCallPolicy      string `toml:"tail_call_policy"`
	} `toml:"stack"`
	Paths struct {
		MaxPathDepth int `toml:"max_path_depth"`
	} `toml:"paths"`
	Symbols struct {
		Demangle bool `toml:"demangle"`
	} `toml:"symbols"`
}

func (t tomlConfig) toConfig() Config {
	return Config{
		ExternalStackBudget: t.Stack.ExternalStackBudget,
		RecursionDepth:      t.Stack.RecursionDepth,
		TailCallPolicy:      TailCallStackPolicy(t.Stack.TailCallPolicy),
		MaxPathDepth:        t.Paths.MaxPathDepth,
		Demangle:            t.Symbols.Demangle,
	}
}

// DefaultConfig returns the configuration baked into the embedded
// config.toml: a 16-byte external stack budget, a recursion depth of 10
// (per spec's S2/S3 scenarios), tail calls reusing the caller's frame, and
// a default path depth of 10.
func DefaultConfig() Config {
	var t tomlConfig
	if err := toml.Unmarshal(embeddedConfig, &t); err != nil {
		panic(fmt.Sprintf("elfscope: embedded config.toml is invalid: %v", err))
	}
	return t.toConfig()
}

// LoadConfig returns [DefaultConfig], overridden by path if it exists. A
// missing path is not an error; an unparsable one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("elfscope: stat config %s: %w", path, err)
	}

	// Start from the embedded defaults so keys the file omits keep them.
	var t tomlConfig
	if err := toml.Unmarshal(embeddedConfig, &t); err != nil {
		return cfg, fmt.Errorf("elfscope: embedded config.toml is invalid: %w", err)
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return cfg, fmt.Errorf("elfscope: parse config %s: %w", path, err)
	}
	return t.toConfig(), nil
}
