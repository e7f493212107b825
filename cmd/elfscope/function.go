package main

import (
	"github.com/spf13/cobra"

	"github.com/elfscope/elfscope"
)

var functionCmd = &cobra.Command{
	Use:   "function <elf-path> <name>",
	Short: "Print one function's address, size, callers, and callees",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		fn := p.graph.FunctionByName(args[1])
		if fn == nil {
			return &elfscope.UnknownFunctionError{Name: args[1]}
		}

		callees := make([]string, 0)
		for _, e := range p.graph.Callees(fn) {
			callees = append(callees, e.Callee.DisplayName())
		}
		callers := make([]string, 0)
		for _, e := range p.graph.Callers(fn) {
			callers = append(callers, e.Caller.DisplayName())
		}

		out := struct {
			Name        string   `json:"name"`
			Address     string   `json:"address"`
			Size        uint64   `json:"size"`
			Type        string   `json:"type"`
			Aliases     []string `json:"aliases"`
			IsRecursive bool     `json:"is_recursive"`
			Callers     []string `json:"callers"`
			Callees     []string `json:"callees"`
		}{
			Name:        fn.DisplayName(),
			Address:     "0x" + uintToHexCLI(fn.Address),
			Size:        fn.Size,
			Type:        fn.Kind.String(),
			Aliases:     fn.Aliases,
			IsRecursive: p.graph.IsRecursive(fn),
			Callers:     callers,
			Callees:     callees,
		}

		return writeResult(out)
	},
}
