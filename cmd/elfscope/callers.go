package main

import "github.com/spf13/cobra"

var callersMaxDepth int

var callersCmd = &cobra.Command{
	Use:    "callers <elf-path> <function>",
	Short:  "List every function that can reach a function, directly or transitively",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		callers, err := p.graph.AllCallers(args[1], callersMaxDepth)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(callers))
		for _, fn := range callers {
			names = append(names, fn.DisplayName())
		}
		return writeResult(names)
	},
}

func init() {
	callersCmd.Flags().IntVar(&callersMaxDepth, "max-depth", 0, "maximum hops to traverse (0 = unbounded)")
}
