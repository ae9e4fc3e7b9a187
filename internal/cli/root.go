// Package cli implements the volley command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/internal/loadtest"
)

var version = "0.1.0"

// ExitThresholdsFailed is the exit status when a run completed but at
// least one threshold failed.
const ExitThresholdsFailed = 99

// NewRootCmd builds the command tree. Each call returns fresh commands and
// flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "volley",
		Short:   "An embeddable HTTP load driver",
		Version: version,
		Long: `Volley drives a fixed number of virtual users against an HTTP API for a
fixed duration, checks every response, and judges the run against
pass/fail thresholds on latency and error rate.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "", "Path to a volley.yaml settings file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console or json)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSmokeCmd())
	root.AddCommand(newStubCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, loadtest.ErrThresholdsFailed):
		return ExitThresholdsFailed
	default:
		return 1
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the volley version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("volley version %s\n", version)
		},
	}
}
