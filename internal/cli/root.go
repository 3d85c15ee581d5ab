package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/aryankumar/taskpool/internal/cli/configcmd"
	"github.com/aryankumar/taskpool/internal/cli/run"
	"github.com/spf13/cobra"
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskpool",
		Short: "Taskpool - bounded worker pool load tester",
		Long: `Taskpool drives a bounded-capacity worker pool with synthetic load.

Producers submit tasks under backpressure: a full queue holds each submission
for at most the submit timeout before rejecting it. After the run, taskpool
verifies that every accepted task executed exactly once and none of the
rejected ones did.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.taskpool/.taskpool.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())

	return rootCmd
}

// setupLogging configures structured logging with slog
func setupLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		// JSON lines are easier to post-process than text
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	if verbose {
		slog.Debug("verbose logging enabled")
	}
}
