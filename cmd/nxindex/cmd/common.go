package cmd

import (
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/registry"
)

// humanizedSize renders a byte count the way status/search output does
// across the CLI, e.g. "1.2 MB".
func humanizedSize(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

// defaultCreators returns the standard IndexCreator chain used by every
// CLI subcommand that opens an index.
func defaultCreators() field.CreatorChain {
	return field.CreatorChain{
		field.NewMinimalArtifactInfoIndexCreator(),
		field.NewJarFileContentsIndexCreator(),
	}
}

// openRegistry builds the wiring struct SPEC_FULL §6.K and spec.md §9's
// DESIGN NOTES call for (creator chain, query constructor, search
// engine, packer, and the map of open contexts) and opens (or creates)
// the index directory at indexDir under it, deriving a stable
// context/repository id from the directory's base name unless
// overridden. Every subcommand that needs to search, query, or pack
// goes through the returned Registry rather than constructing its own
// throwaway copies of those components.
func openRegistry(indexDir, repositoryID string, reclaim bool, packerOpts packer.Options) (*registry.Registry, *idxcontext.IndexingContext, error) {
	if repositoryID == "" {
		repositoryID = filepath.Base(filepath.Clean(indexDir))
	}
	creators := defaultCreators()

	reg, err := registry.New(registry.Options{
		Creators:   creators,
		GavCalc:    gav.NewM2GavCalculator(),
		PackerOpts: packerOpts,
	})
	if err != nil {
		return nil, nil, err
	}

	ic, err := idxcontext.Open(idxcontext.Options{
		ID:            repositoryID,
		RepositoryID:  repositoryID,
		IndexDir:      indexDir,
		Creators:      creators,
		GavCalculator: reg.GavCalc,
		Reclaim:       reclaim,
	})
	if err != nil {
		return nil, nil, err
	}
	reg.Register(ic)
	return reg, ic, nil
}
