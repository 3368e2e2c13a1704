// Command racksim ingests rack telemetry, selects readings and computes
// cooling metrics.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/racksim/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "racksim:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
