package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var (
	analyzeStats  bool
	analyzeDetail bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <elf-path>",
	Short: "Export the full call-relationship report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		report := elfscope.BuildCallRelationshipReport(p.info, p.graph, p.config, time.Now().UTC().Format(time.RFC3339))
		if !analyzeDetail {
			report.CallRelationships = nil
		}
		if !analyzeStats {
			report.Statistics = elfscope.CallRelationshipStatistics{}
		}
		return writeResult(report)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeStats, "stats", true, "include the statistics block")
	analyzeCmd.Flags().BoolVar(&analyzeDetail, "detail", true, "include the full call_relationships list")
}
