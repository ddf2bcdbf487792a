// Package root holds the command-line entrypoints.
package root

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/threadkit/threadkit/pkg/logging"
)

type rootFlags struct {
	debugMode   bool
	logFilePath string
	logFile     io.Closer
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "threadkit",
		Short: "threadkit - conversational agent runtime",
		Long:  "threadkit runs multi-agent chat threads with tool calling over an HTTP event stream",
		Example: `  threadkit serve
  threadkit serve --config ./threadkit.yaml`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if flags.debugMode {
				level = slog.LevelDebug
			}

			out := cmd.ErrOrStderr()
			if flags.logFilePath != "" {
				if file, err := logging.NewRotatingFile(flags.logFilePath); err == nil {
					flags.logFile = file
					out = file
				}
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
				Level: level,
			})))
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Write logs to this file instead of stderr (rotated)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
