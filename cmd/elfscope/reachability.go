package main

import "github.com/spf13/cobra"

var reachabilityCmd = &cobra.Command{
	Use:    "reachability <elf-path> <function>",
	Short:  "List every function transitively reachable from a function",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		reachable, err := p.graph.Reachability(args[1])
		if err != nil {
			return err
		}

		names := make([]string, 0, len(reachable))
		for _, fn := range reachable {
			names = append(names, fn.DisplayName())
		}
		return writeResult(names)
	},
}
