package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/groupcache"
	"github.com/nxindex/core/internal/packer"
)

// statusInfo is the JSON/text-renderable summary `status` reports.
type statusInfo struct {
	RepositoryID string `json:"repository_id"`
	IndexDir     string `json:"index_dir"`
	Searchable   bool   `json:"searchable"`
	Timestamp    string `json:"timestamp"`
	IndexSize    int64  `json:"index_size_bytes"`
	Groups       int    `json:"root_groups"`
}

func newStatusCmd() *cobra.Command {
	var (
		indexDir string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and summary information",
		Long: `Display the repository id, searchable flag, last-commit
timestamp, on-disk size, and root group count for the index at --index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if indexDir == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index is required", nil)
			}
			return runStatus(cmd, indexDir, jsonOut)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "Path to the index directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, indexDir string, jsonOut bool) error {
	reg, ic, err := openRegistry(indexDir, "", false, packer.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = reg.CloseAll() }()

	groups, err := groupcache.RootGroups(ic)
	if err != nil {
		return err
	}

	info := statusInfo{
		RepositoryID: ic.RepositoryID(),
		IndexDir:     ic.IndexDir(),
		Searchable:   ic.Searchable(),
		Timestamp:    ic.Timestamp().Format("2006-01-02T15:04:05Z07:00"),
		IndexSize:    dirSize(ic.IndexDir()),
		Groups:       len(groups),
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "repository:   %s\n", info.RepositoryID)
	fmt.Fprintf(out, "index dir:    %s\n", info.IndexDir)
	fmt.Fprintf(out, "searchable:   %t\n", info.Searchable)
	fmt.Fprintf(out, "timestamp:    %s\n", info.Timestamp)
	fmt.Fprintf(out, "size on disk: %s\n", humanizedSize(info.IndexSize))
	fmt.Fprintf(out, "root groups:  %d\n", info.Groups)
	return nil
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !fi.IsDir() {
			size += fi.Size()
		}
		return nil
	})
	return size
}
