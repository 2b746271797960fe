package cmd

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		logFile    string
		level      string
		pattern    string
		lines      int
		follow     bool
		noColor    bool
		showSource bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail or follow nxindex's debug log file",
		Long: `Print the last --lines entries of nxindex's debug log
(written under ~/.nxindex/logs/ when a command runs with --debug),
filtered by --level and --pattern, with --follow to stream new entries
as they are written.`,
		Example: `  nxindex logs --lines 50
  nxindex logs --level warn --pattern "chain reset"
  nxindex logs --follow`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(logFile)
			if err != nil {
				return nxerrors.New(nxerrors.ErrCodeFileNotFound, err.Error(), err)
			}

			var re *regexp.Regexp
			if pattern != "" {
				re, err = regexp.Compile(pattern)
				if err != nil {
					return nxerrors.New(nxerrors.ErrCodeInvalidInput, "invalid --pattern: "+err.Error(), err)
				}
			}

			viewer := logging.NewViewer(logging.ViewerConfig{
				Level:      level,
				Pattern:    re,
				NoColor:    noColor,
				ShowSource: showSource,
			}, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return nxerrors.IOError("reading log file", err)
			}
			viewer.Print(entries)

			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return followLog(ctx, viewer, path)
		},
	}

	cmd.Flags().StringVar(&logFile, "file", "", "Explicit log file path (defaults to ~/.nxindex/logs/nxindex.log)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show: debug, info, warn, error")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only show lines matching this regular expression")
	cmd.Flags().IntVar(&lines, "lines", 100, "Number of trailing lines to show")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep streaming new log entries (ctrl-c to stop)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	cmd.Flags().BoolVar(&showSource, "show-source", false, "Show the log source label")

	return cmd
}

func followLog(ctx context.Context, viewer *logging.Viewer, path string) error {
	entries := make(chan logging.LogEntry, 64)
	done := make(chan error, 1)
	go func() { done <- viewer.Follow(ctx, path, entries) }()

	for {
		select {
		case entry := <-entries:
			viewer.Print([]logging.LogEntry{entry})
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
