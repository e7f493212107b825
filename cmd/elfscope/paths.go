package main

import (
	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var (
	pathsSource          string
	pathsMaxDepth        int
	pathsIncludeCycles   bool
	pathsAllowUnresolved bool
)

var pathsCmd = &cobra.Command{
	Use:   "paths <elf-path> <target>",
	Short: "Enumerate call paths reaching a target function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		target := p.graph.FunctionByName(args[1])
		if target == nil {
			return &elfscope.UnknownFunctionError{Name: args[1]}
		}

		maxDepth := pathsMaxDepth
		if maxDepth <= 0 {
			maxDepth = p.config.MaxPathDepth
		}

		finder := elfscope.NewPathFinder(p.graph)

		var source *elfscope.Function
		var paths []elfscope.CallPath
		if pathsSource != "" {
			source = p.graph.FunctionByName(pathsSource)
			if source == nil {
				return &elfscope.UnknownFunctionError{Name: pathsSource}
			}
			paths = finder.FindPaths(source, target, maxDepth, pathsIncludeCycles, pathsAllowUnresolved)
		} else {
			// No source: enumerate from every root (function with no
			// internal caller), per spec.md section 4.4.
			paths = finder.FindAllPaths(target, maxDepth, pathsIncludeCycles, pathsAllowUnresolved)
		}

		report := elfscope.BuildPathReport(source, target, maxDepth, paths)
		return writeResult(report)
	},
}

func init() {
	pathsCmd.Flags().StringVar(&pathsSource, "source", "", "source function (default: enumerate from every root function)")
	pathsCmd.Flags().IntVar(&pathsMaxDepth, "max-depth", 0, "maximum path length in edges (0 = config default)")
	pathsCmd.Flags().BoolVar(&pathsIncludeCycles, "include-cycles", false, "allow a single revisit of an already-seen function")
	pathsCmd.Flags().BoolVar(&pathsAllowUnresolved, "allow-unresolved", false, "allow paths that traverse @unresolved (suppressed by default)")
}
