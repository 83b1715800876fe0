// Command jobpool runs a demonstration batch against the job-pool controller
// and renders a per-job outcome summary. It doubles as a smoke-test harness
// for the failure protocol: flags can inject a unit-killing job, an ordinary
// error, or a stall that trips the per-job timeout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "jobpool",
		Short: "Worker-pool controller demo",
		Long: `jobpool drives a batch of synthetic jobs through the job-pool controller. ` +
			`Use the run command to execute a batch and inspect ordering, backpressure, ` +
			`fail-fast unit-death detection and per-job timeouts.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
