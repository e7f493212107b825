package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope/internal/rpcshim"
)

// serveCmd runs the newline-delimited JSON request/response loop the MCP
// collaborator drives, one call per verb.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON request/response loop on stdin/stdout",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rpcshim.NewServer(newLogger()).Serve(os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
