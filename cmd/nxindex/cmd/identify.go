package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/updater"
)

func newIdentifyCmd() *cobra.Command {
	var (
		indexDir string
		remote   string
	)

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Report the chain-id/counter position, optionally against a remote mirror",
		Long: `Report the local publication chain-id and last-incremental
counter recorded under --index/nexus-maven-repository-index.properties.

With --remote, additionally fetch the remote mirror's published
properties and report the fetch plan a consumer would need: up-to-date,
incremental, or full.`,
		Example: `  nxindex identify --index /var/nxindex/central
  nxindex identify --index ./local-copy --remote https://repo.example.com/.index`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if indexDir == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index is required", nil)
			}
			return runIdentify(cmd, indexDir, remote)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "Path to a directory holding nexus-maven-repository-index.properties")
	cmd.Flags().StringVar(&remote, "remote", "", "Base URL of a remote index publication to compare against")

	return cmd
}

func runIdentify(cmd *cobra.Command, indexDir, remote string) error {
	local, err := packer.ParsePropertiesFile(filepath.Clean(indexDir))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if local == nil {
		fmt.Fprintln(out, "no local chain recorded yet")
	} else {
		fmt.Fprintf(out, "local chain-id:  %s\n", local.ChainID)
		fmt.Fprintf(out, "local counter:   %d\n", local.LastIncremental)
	}

	if remote == "" {
		return nil
	}

	u := updater.NewHTTPUpdater()
	remoteProps, err := u.FetchRemoteProperties(cmd.Context(), remote)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "remote chain-id: %s\n", remoteProps.ChainID)
	fmt.Fprintf(out, "remote counter:  %d\n", remoteProps.LastIncremental)

	localChainID, localCounter := "", -1
	if local != nil {
		localChainID, localCounter = local.ChainID, local.LastIncremental
	}
	plan := updater.Plan(localChainID, localCounter, remoteProps)
	fmt.Fprintf(out, "fetch plan:      %s\n", plan)
	return nil
}
