package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var (
	outputFlag  string
	configFlag  string
	verboseFlag bool
	noDemangle  bool
)

var rootCmd = &cobra.Command{
	Use:          "elfscope",
	Short:        "Recover call graphs, call paths, and stack usage from ELF binaries",
	Version:      elfscope.ToolVersion,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "write JSON output to this file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a TOML config file overriding the defaults")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&noDemangle, "no-demangle", false, "disable C++/Rust symbol demangling")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(functionCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(stackCmd)
	rootCmd.AddCommand(stackSummaryCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(reachabilityCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(criticalCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the effective [elfscope.Config], applying --no-demangle
// on top of whatever --config (or the embedded default) supplied.
func loadConfig() (elfscope.Config, error) {
	cfg, err := elfscope.LoadConfig(configFlag)
	if err != nil {
		return cfg, err
	}
	if noDemangle {
		cfg.Demangle = false
	}
	return cfg, nil
}

// pipeline bundles the sequential Loader -> Disassembler -> CallGraph
// stages every verb needs.
type pipeline struct {
	info   *elfscope.ElfInfo
	dis    *elfscope.Disassembler
	graph  *elfscope.CallGraph
	config elfscope.Config
}

func buildPipeline(path string) (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	info, err := elfscope.LoadWithConfig(path, cfg, logger)
	if err != nil {
		return nil, err
	}

	dis, err := elfscope.NewDisassembler(info.Arch, logger)
	if err != nil {
		return nil, err
	}

	graph := elfscope.BuildCallGraph(info, dis, logger)

	return &pipeline{info: info, dis: dis, graph: graph, config: cfg}, nil
}

// writeResult marshals v as indented JSON to --output, or stdout if unset.
func writeResult(v any) error {
	var w io.Writer = os.Stdout
	if outputFlag != "" {
		f, err := os.Create(outputFlag)
		if err != nil {
			return fmt.Errorf("elfscope: create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStackAnalyzer(p *pipeline) *elfscope.StackAnalyzer {
	return elfscope.NewStackAnalyzer(p.graph, p.dis, p.info.Arch, p.config, newLogger())
}

// exitCodeFor maps the error taxonomy in the spec's error-handling design to
// the CLI's documented exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "error:", err)

	switch err.(type) {
	case *elfscope.UnknownFunctionError:
		return 4
	case *elfscope.NotAnElfError, *elfscope.TruncatedFileError:
		return 2
	case *elfscope.UnsupportedArchError:
		return 3
	default:
		return 1
	}
}
