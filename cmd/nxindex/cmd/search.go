package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/query"
	"github.com/nxindex/core/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		indexDir  string
		fieldName string
		q         string
		searchTy  string
		limit     int
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a flat search over one index and print matching artifacts",
		Long: `Construct a query over --field with --query and print every
matching artifact as a table, ordered by UINFO.

--type exact requires an untokenized keyword match (or a wildcard
pattern); --type scored allows relevance-ranked tokenised matching.`,
		Example: `  nxindex search --index /var/nxindex/central --field groupId --query org.apache.maven --type exact
  nxindex search --index /var/nxindex/central --field classnames --query "*Servlet*" --type scored`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if indexDir == "" || fieldName == "" || q == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index, --field, and --query are required", nil)
			}
			var st query.SearchType
			switch strings.ToLower(searchTy) {
			case "exact":
				st = query.Exact
			case "scored", "":
				st = query.Scored
			default:
				return nxerrors.New(nxerrors.ErrCodeInvalidQuery, "unknown --type: "+searchTy, nil)
			}
			return runSearch(cmd, indexDir, fieldName, q, st, limit, jsonOut)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "Path to the index directory to search")
	cmd.Flags().StringVar(&fieldName, "field", "", "Field ontology name to query, e.g. groupId, artifactId, version, classnames")
	cmd.Flags().StringVar(&q, "query", "", "Query string")
	cmd.Flags().StringVar(&searchTy, "type", "scored", "Search type: exact or scored")
	cmd.Flags().IntVar(&limit, "limit", 200, "Maximum number of hits before reporting limit-exceeded")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, indexDir, fieldName, q string, st query.SearchType, limit int, jsonOut bool) error {
	reg, ic, err := openRegistry(indexDir, "", false, packer.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = reg.CloseAll() }()

	bq, err := reg.Queries.Constructed(fieldName, q, st)
	if err != nil {
		return err
	}
	if bq == nil {
		return nxerrors.New(nxerrors.ErrCodeInvalidQuery, "field/type combination produced no query", nil)
	}

	result, err := reg.Search.SearchFlatPaged(cmd.Context(), []*idxcontext.IndexingContext{ic}, bq, limit, search.ByUINFO, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Hits)
	}

	if result.LimitReached {
		fmt.Fprintln(out, "warning: result limit reached, no results returned")
	}
	printArtifactTable(out, result.Hits)
	return nil
}

func printArtifactTable(out io.Writer, hits []*gav.ArtifactInfo) {
	for _, info := range hits {
		fmt.Fprintf(out, "%-60s %10s %-8s\n", info.UINFO(), humanizedSize(info.Size), info.Packaging)
	}
	fmt.Fprintf(out, "%d artifact(s)\n", len(hits))
}
