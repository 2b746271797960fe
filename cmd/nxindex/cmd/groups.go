package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/groupcache"
	"github.com/nxindex/core/internal/packer"
)

func newGroupsCmd() *cobra.Command {
	var (
		indexDir string
		root     bool
		rebuild  bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List or rebuild the cached group-id sets for an index",
		Long: `Print the cached allGroups (every groupId seen) or, with --root,
rootGroups (first path segment of every groupId) set for the index at
--index.

--rebuild forces a full rescan of the index's live documents before
printing, rewriting both cache documents atomically.`,
		Example: `  nxindex groups --index /var/nxindex/central
  nxindex groups --index /var/nxindex/central --root
  nxindex groups --index /var/nxindex/central --rebuild`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if indexDir == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index is required", nil)
			}
			return runGroups(cmd, indexDir, root, rebuild, jsonOut)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "Path to the index directory")
	cmd.Flags().BoolVar(&root, "root", false, "Report rootGroups instead of allGroups")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rescan live documents and rewrite both group caches first")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runGroups(cmd *cobra.Command, indexDir string, root, rebuild, jsonOut bool) error {
	reg, ic, err := openRegistry(indexDir, "", false, packer.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = reg.CloseAll() }()

	if rebuild {
		if err := groupcache.Rebuild(ic); err != nil {
			return err
		}
	}

	var groups []string
	if root {
		groups, err = groupcache.RootGroups(ic)
	} else {
		groups, err = groupcache.AllGroups(ic)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	for _, g := range groups {
		fmt.Fprintln(out, g)
	}
	fmt.Fprintf(out, "%d group(s)\n", len(groups))
	return nil
}
