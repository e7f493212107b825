package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <elf-path>",
	Short: "Print call-graph statistics without the full relationship list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		report := elfscope.BuildCallRelationshipReport(p.info, p.graph, p.config, time.Now().UTC().Format(time.RFC3339))
		report.CallRelationships = nil
		report.Functions = nil
		return writeResult(report)
	},
}
