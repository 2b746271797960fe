package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nxindex/core/internal/config"
	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/scanner"
)

func newIndexCmd() *cobra.Command {
	var (
		repoPath string
		indexDir string
		reclaim  bool
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan a Maven repository and populate its index",
		Long: `Walk a Maven2-layout repository directory, extract artifact
coordinates and metadata from every discovered file, and commit the
result into the index directory.`,
		Example: `  nxindex index --repository /srv/maven/central --index /var/nxindex/central
  nxindex index --repository ./repo --index ./repo/.index --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if repoPath == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--repository is required", nil)
			}
			if indexDir == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index is required", nil)
			}
			cfg, err := config.Load(indexDir)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reclaim") {
				reclaim = cfg.Index.ReclaimIndex
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, repoPath, indexDir, reclaim, watch)
		},
	}

	cmd.Flags().StringVar(&repoPath, "repository", "", "Path to the Maven2-layout repository root")
	cmd.Flags().StringVar(&indexDir, "index", "", "Path to the index directory (created if absent)")
	cmd.Flags().BoolVar(&reclaim, "reclaim", false, "Reclaim an index directory whose descriptor is absent or mismatched")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and index new/changed artifacts as they appear")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, repoPath, indexDir string, reclaim, watch bool) error {
	reg, ic, err := openRegistry(indexDir, "", reclaim, packer.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = reg.CloseAll() }()

	fsScanner := scanner.NewFSScanner(ic.GavCalculator())
	creators := ic.Creators()

	progress := isatty.IsTerminal(os.Stdout.Fd())
	start := time.Now()
	var count int
	var bytesScanned int64

	visit := func(ac *scanner.ArtifactContext) error {
		info, err := creators.Populate(ctx, ac)
		if err != nil {
			slog.Warn("skipping artifact", slog.String("path", ac.Path), slog.String("error", err.Error()))
			return nil
		}
		if err := ic.AddArtifact(info); err != nil {
			return err
		}
		count++
		if ac.Info != nil {
			bytesScanned += ac.Info.Size()
		}
		if progress && count%200 == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r  %d artifacts (%s) scanned...", count, humanize.Bytes(uint64(bytesScanned)))
		}
		return nil
	}

	if err := fsScanner.Scan(ctx, repoPath, visit); err != nil {
		return nxerrors.IOError("scanning repository", err)
	}
	if err := ic.Commit(); err != nil {
		return err
	}
	if progress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d artifacts (%s) in %s\n",
		count, humanize.Bytes(uint64(bytesScanned)), humanize.RelTime(start, time.Now(), "", ""))

	if !watch {
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "watching for changes (ctrl-c to stop)...")
	if err := fsScanner.Watch(ctx, repoPath, visit); err != nil && ctx.Err() == nil {
		return nxerrors.IOError("watching repository", err)
	}
	return ic.Commit()
}
