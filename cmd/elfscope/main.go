// Command elfscope recovers the inter-procedural call graph of an ELF
// binary and reports call paths and worst-case stack consumption.
package main

import "os"

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}
