package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var completeStackTop int

// completeCmd runs the full pipeline and bundles every report into one
// document: the call-relationship export plus the stack summary. Intended
// for offline archival or feeding a single file to a downstream tool that
// doesn't want to drive the CLI more than once per binary.
var completeCmd = &cobra.Command{
	Use:   "complete <elf-path>",
	Short: "Export the call-relationship report and stack summary together",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		callReport := elfscope.BuildCallRelationshipReport(p.info, p.graph, p.config, time.Now().UTC().Format(time.RFC3339))
		stackSummary := newStackAnalyzer(p).Summary(completeStackTop)

		out := struct {
			CallRelationships elfscope.CallRelationshipReport `json:"call_relationships"`
			StackSummary      elfscope.StackSummary           `json:"stack_summary"`
		}{
			CallRelationships: callReport,
			StackSummary:      stackSummary,
		}

		return writeResult(out)
	},
}

func init() {
	completeCmd.Flags().IntVar(&completeStackTop, "top", 10, "number of heaviest functions to include in the stack summary")
}
