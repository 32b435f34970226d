// Command simcore runs, records, and verifies deterministic simulation
// scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/calder-games/simcore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
