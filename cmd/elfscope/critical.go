package main

import "github.com/spf13/cobra"

var criticalTop int

var criticalCmd = &cobra.Command{
	Use:    "critical <elf-path>",
	Short:  "List internal functions with the highest caller fan-in",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		fns := p.graph.CriticalFunctions(criticalTop)
		names := make([]string, 0, len(fns))
		for _, fn := range fns {
			names = append(names, fn.DisplayName())
		}
		return writeResult(names)
	},
}

func init() {
	criticalCmd.Flags().IntVar(&criticalTop, "top", 10, "number of functions to return (0 = all)")
}
