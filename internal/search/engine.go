package search

import (
	"context"

	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
)

// Engine is a stateless handle onto the package-level flat/grouped/
// iterator search functions, so a registry (internal/registry) has a
// single constructed value to hold and pass by reference rather than
// depending on this package's exported functions directly.
type Engine struct{}

// NewEngine returns a ready-to-use Engine. There is no per-instance
// state: every method call is parameterized entirely by its arguments.
func NewEngine() *Engine { return &Engine{} }

func (e *Engine) SearchFlatPaged(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, resultHitLimit int, cmp ResultComparator, force bool) (*FlatResult, error) {
	return SearchFlatPaged(ctx, contexts, q, resultHitLimit, cmp, force)
}

func (e *Engine) SearchGrouped(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, g Grouping, force bool) (map[string][]*gav.ArtifactInfo, error) {
	return SearchGrouped(ctx, contexts, q, g, force)
}

func (e *Engine) SearchIterator(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, start, count int, force bool) (*Cursor, error) {
	if force {
		return ForceSearchIterator(ctx, contexts, q, start, count)
	}
	return SearchIterator(ctx, contexts, q, start, count)
}
