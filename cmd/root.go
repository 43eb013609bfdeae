// Package cmd contains the CLI commands for the spex application.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

// verbose holds the global --verbose flag state.
var verbose bool

// jsonOut holds the global --json flag state.
var jsonOut bool

func init() {
	rootCmd = NewRootCmd()
	registerCommands(rootCmd)
}

// GetVerbose returns the current verbose flag state. Adapters use it to
// decide whether step progress goes to stderr.
func GetVerbose() bool {
	return verbose
}

// GetJSON returns the current global JSON output flag state.
func GetJSON() bool {
	return jsonOut
}

// NewRootCmd creates a new root command instance.
// This is useful for testing to get a fresh command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spex",
		Short: "Extract 1-D spectra from calibrated 2-D slit products",
		Long: "spex runs 1-D spectral extraction on resampled 2-D slit products using a\n" +
			"caller-supplied extraction parameter file, and can render a diagnostic\n" +
			"flux-vs-wavelength plot of the result.",
	}

	// Add persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	cmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output results as JSON")

	return cmd
}

// ExecuteContext runs the root command with the given context.
// This enables graceful shutdown via context cancellation (e.g., on SIGINT).
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
