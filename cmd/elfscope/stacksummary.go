package main

import "github.com/spf13/cobra"

var stackSummaryTop int

var stackSummaryCmd = &cobra.Command{
	Use:   "stack-summary <elf-path>",
	Short: "Print the stack-usage distribution and the heaviest functions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		analyzer := newStackAnalyzer(p)
		return writeResult(analyzer.Summary(stackSummaryTop))
	},
}

func init() {
	stackSummaryCmd.Flags().IntVar(&stackSummaryTop, "top", 10, "number of heaviest functions to report")
}
