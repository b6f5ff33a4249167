// socfactory builds the SOC use-case factory's coverage artifacts: it
// validates the log-source inventory, flattens an ATT&CK STIX bundle into a
// technique master, seeds and merges the technique/family mapping scaffold,
// and rolls the scaffold up into coverage tables and Navigator layers.
//
// Usage:
//
//	socfactory validate|taxonomy|seed|merge|coverage|schemas|run [flags]
package main

import (
	"fmt"
	"os"

	"github.com/arminjalali/soc-usecase-factory/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
