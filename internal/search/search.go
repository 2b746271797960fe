// Package search implements flat, grouped, and iterator search across one
// or more indexing contexts. It generalizes the teacher's multi-context
// fan-out (errgroup-based parallelSearch across BM25/vector backends) down
// to plain multi-context Lucene-style search: no fusion, no reranking,
// just "run this query against every context and merge the hits".
package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/sync/errgroup"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
)

// ResultComparator orders two reconstituted artifacts for flat search's
// result set. Ties should fall back to UINFO to keep ordering stable.
type ResultComparator func(a, b *gav.ArtifactInfo) bool

// ByUINFO orders artifacts by ascending UINFO, matching the per-context
// scan order used internally.
func ByUINFO(a, b *gav.ArtifactInfo) bool { return a.UINFO() < b.UINFO() }

// FlatResult is the outcome of SearchFlatPaged.
type FlatResult struct {
	Hits         []*gav.ArtifactInfo
	LimitReached bool
}

// perContextPageSize bounds how many hits are pulled from a single bleve
// Search call per page while scanning a context.
const perContextPageSize = 1000

// SearchFlatPaged runs q against every searchable context (or every
// context, when force is true), reconstitutes matching documents into
// ArtifactInfo values via each context's creator chain, and returns them
// ordered by cmp (nil defaults to ByUINFO). If the cumulative hit count
// exceeds resultHitLimit, the sentinel result {LimitReached: true} is
// returned with no hits.
func SearchFlatPaged(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, resultHitLimit int, cmp ResultComparator, force bool) (*FlatResult, error) {
	if cmp == nil {
		cmp = ByUINFO
	}

	perContext := make([][]*gav.ArtifactInfo, len(contexts))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range contexts {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if !force && !c.Searchable() {
				return nil
			}
			hits, err := scanContext(c, q)
			if err != nil {
				return err
			}
			perContext[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []*gav.ArtifactInfo
	total := 0
	for _, hits := range perContext {
		for _, info := range hits {
			total++
			if total > resultHitLimit {
				slog.Warn("flat search abandoned, hit limit exceeded",
					slog.Int("limit", resultHitLimit), slog.Int("contexts", len(contexts)))
				return &FlatResult{LimitReached: true}, nil
			}
			key := info.UINFO()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, info)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return cmp(merged[i], merged[j]) })
	return &FlatResult{Hits: merged}, nil
}

// scanContext runs q against a single context, sorted by UINFO ascending,
// paging through bleve's Search API, and reconstitutes every recognised
// hit. Unrecognised documents (no creator claims them; internal marker
// documents such as the descriptor or group cache) are skipped.
func scanContext(c *idxcontext.IndexingContext, q bquery.Query) ([]*gav.ArtifactInfo, error) {
	c.Lock()
	defer c.Unlock()

	idx := c.Index()
	creators := c.Creators()

	var out []*gav.ArtifactInfo
	from := 0
	for {
		req := bleve.NewSearchRequestOptions(q, perContextPageSize, from, false)
		req.Fields = []string{"*"}
		req.SortBy([]string{"_id"})

		res, err := idx.Search(req)
		if err != nil {
			return nil, nxerrors.New(nxerrors.ErrCodeSearchFailed, "executing flat search", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, hit := range res.Hits {
			doc := fieldsToDocument(hit.Fields)
			if doc.GetString(field.StorageKeyDeleted) != "" {
				continue
			}
			info, ok := creators.Extract(doc)
			if !ok {
				continue
			}
			out = append(out, info)
		}
		from += len(res.Hits)
		if len(res.Hits) < perContextPageSize {
			break
		}
	}
	return out, nil
}

// fieldsToDocument mirrors idxcontext's private helper of the same
// purpose; duplicated here because the search package deliberately only
// depends on IndexingContext's exported surface.
func fieldsToDocument(fields map[string]interface{}) *field.IndexDocument {
	doc := field.NewIndexDocument()
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			doc.Set(k, t)
		case []interface{}:
			values := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok {
					values = append(values, s)
				}
			}
			doc.SetMulti(k, values)
		}
	}
	return doc
}

// Grouping folds an artifact into a caller-chosen group key. A false
// return rejects the hit: it is not counted in any group.
type Grouping func(info *gav.ArtifactInfo) (key string, ok bool)

// GroupByGA groups by "groupId:artifactId", the common Maven grouping.
func GroupByGA(info *gav.ArtifactInfo) (string, bool) {
	if info.GroupID == "" || info.ArtifactID == "" {
		return "", false
	}
	return info.GroupID + ":" + info.ArtifactID, true
}

// SearchGrouped runs q against every searchable context (or every
// context, when force is true) and folds each recognised hit into a
// map keyed by g.
func SearchGrouped(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, g Grouping, force bool) (map[string][]*gav.ArtifactInfo, error) {
	var mu sync.Mutex
	groups := make(map[string][]*gav.ArtifactInfo)

	eg, gctx := errgroup.WithContext(ctx)
	for _, c := range contexts {
		c := c
		eg.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if !force && !c.Searchable() {
				return nil
			}
			hits, err := scanContext(c, q)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, info := range hits {
				key, ok := g(info)
				if !ok {
					continue
				}
				groups[key] = append(groups[key], info)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}
