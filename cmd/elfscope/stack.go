package main

import "github.com/spf13/cobra"

var stackCmd = &cobra.Command{
	Use:   "stack <elf-path> <function>",
	Short: "Print worst-case stack consumption for one function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		analyzer := newStackAnalyzer(p)
		report, err := analyzer.FunctionStack(args[1])
		if err != nil {
			return err
		}
		return writeResult(report)
	},
}
