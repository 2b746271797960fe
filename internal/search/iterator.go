package search

import (
	"context"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
)

// scoredHit pairs a reconstituted artifact with the score its source
// context assigned it, for the (score desc, docId asc) ordering the
// iterator promises.
type scoredHit struct {
	info  *gav.ArtifactInfo
	score float64
	docID string
}

// Cursor is a single-pass, lazily-materialized union of search results
// across every participating context. It holds a shared lock on each
// context from construction until Close, so a long-lived cursor blocks
// exclusive operations (purge, replace, merge, rebuildGroups) on those
// contexts until the caller releases it.
type Cursor struct {
	mu       sync.Mutex
	hits     []scoredHit
	pos      int
	start    int
	count    int
	locked   []*idxcontext.IndexingContext
	closed   bool
	once     sync.Once
}

// Close releases every lock held by the cursor. Idempotent and panic-safe
// via sync.Once, matching the closed-bool-under-mutex Close idiom used
// throughout idxcontext.
func (c *Cursor) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		for _, ctx := range c.locked {
			ctx.Unlock()
		}
		c.locked = nil
	})
}

// Next returns the next artifact in (score desc, docId asc) order, honoring
// the start/count bounds given at construction. ok is false once the
// window is exhausted.
func (c *Cursor) Next() (*gav.ArtifactInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	if c.count >= 0 && c.pos-c.start >= c.count {
		return nil, false
	}
	if c.pos >= len(c.hits) {
		return nil, false
	}
	hit := c.hits[c.pos]
	c.pos++
	return hit.info, true
}

// SearchIterator builds a union reader across contexts (or every context,
// when force is true), sorted by (score desc, docId asc), and returns a
// lazy Cursor. On any construction failure every lock already taken is
// released before the error is returned.
func SearchIterator(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, start, count int) (*Cursor, error) {
	return searchIterator(ctx, contexts, q, start, count, false)
}

// ForceSearchIterator behaves like SearchIterator but ignores each
// context's searchable flag.
func ForceSearchIterator(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, start, count int) (*Cursor, error) {
	return searchIterator(ctx, contexts, q, start, count, true)
}

func searchIterator(ctx context.Context, contexts []*idxcontext.IndexingContext, q bquery.Query, start, count int, force bool) (*Cursor, error) {
	cur := &Cursor{start: start, pos: start, count: count}

	var participating []*idxcontext.IndexingContext
	for _, c := range contexts {
		if !force && !c.Searchable() {
			continue
		}
		c.Lock()
		participating = append(participating, c)
	}
	cur.locked = participating

	var all []scoredHit
	for _, c := range participating {
		select {
		case <-ctx.Done():
			cur.Close()
			return nil, ctx.Err()
		default:
		}

		hits, err := scoreContext(c, q)
		if err != nil {
			cur.Close()
			return nil, err
		}
		all = append(all, hits...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].docID < all[j].docID
	})
	cur.hits = all

	if start > len(all) {
		cur.pos = len(all)
	}
	return cur, nil
}

// scoreContext runs q against a single, already-locked context and
// reconstitutes every recognised hit alongside its score and doc ID.
// Callers must already hold the context's lock.
func scoreContext(c *idxcontext.IndexingContext, q bquery.Query) ([]scoredHit, error) {
	idx := c.Index()
	creators := c.Creators()

	var out []scoredHit
	from := 0
	for {
		req := bleve.NewSearchRequestOptions(q, perContextPageSize, from, false)
		req.Fields = []string{"*"}

		res, err := idx.Search(req)
		if err != nil {
			return nil, nxerrors.New(nxerrors.ErrCodeSearchFailed, "executing iterator search", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, hit := range res.Hits {
			doc := fieldsToDocument(hit.Fields)
			info, ok := creators.Extract(doc)
			if !ok {
				continue
			}
			out = append(out, scoredHit{info: info, score: hit.Score, docID: hit.ID})
		}
		from += len(res.Hits)
		if len(res.Hits) < perContextPageSize {
			break
		}
	}
	return out, nil
}
