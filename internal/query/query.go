// Package query translates user-facing query strings into structured
// bleve queries, using the same wildcard/prefix/tokenisation heuristics
// the on-disk index was built with.
package query

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nxindex/core/internal/field"
)

// SearchType selects how a query string is matched against a field.
type SearchType int

const (
	// Exact requires an untokenized, keyword-style match (or a wildcard
	// pattern over one).
	Exact SearchType = iota
	// Scored allows relevance-ranked, tokenised matching.
	Scored
)

// NotPresent is the sentinel query string meaning "field must exist",
// regardless of value.
const NotPresent = "NOT_PRESENT"

const cacheSize = 512

// Constructor builds bleve queries for a fixed field schema, memoizing
// repeated constructions.
type Constructor struct {
	byOntology map[string][]field.IndexerField
	cache      *lru.Cache[string, bquery.Query]
}

// NewConstructor builds a Constructor over the given schema, as declared
// by a field.CreatorChain.
func NewConstructor(fields []field.IndexerField) (*Constructor, error) {
	byOntology := make(map[string][]field.IndexerField)
	for _, f := range fields {
		byOntology[f.Ontology] = append(byOntology[f.Ontology], f)
	}
	cache, err := lru.New[string, bquery.Query](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &Constructor{byOntology: byOntology, cache: cache}, nil
}

// Constructed builds the bleve query for one logical field, query string,
// and search type. It returns (nil, nil) when the field/type combination
// cannot produce a query (e.g. EXACT requested on a non-keyword field).
func (c *Constructor) Constructed(fieldName, q string, st SearchType) (bquery.Query, error) {
	cacheKey := fmt.Sprintf("%d:%s:%s", st, fieldName, q)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	result, err := c.constructed(fieldName, q, st)
	if err == nil && result != nil {
		c.cache.Add(cacheKey, result)
	}
	return result, err
}

func (c *Constructor) constructed(fieldName, q string, st SearchType) (bquery.Query, error) {
	target, isKeyword := c.resolveField(fieldName, st)

	if q == NotPresent {
		wq := bleve.NewWildcardQuery("*")
		wq.SetField(target)
		return wq, nil
	}

	switch {
	case st == Exact && isKeyword:
		return exactKeywordQuery(target, q), nil
	case st == Exact && !isKeyword:
		slog.Warn("EXACT search requested against non-keyword field", slog.String("field", fieldName))
		return nil, nil
	case st == Scored && isKeyword:
		return scoredKeywordQuery(target, q), nil
	default:
		q1, ok := c.scoredTokenizedQuery(fieldName, target, q)
		if ok {
			return q1, nil
		}
		return c.legacyQuery(fieldName, target, q), nil
	}
}

// resolveField picks the IndexerField matching fieldName and st: the
// keyword variant for EXACT, the tokenised variant for SCORED. If none
// matches, the last declared field for that ontology is used.
func (c *Constructor) resolveField(fieldName string, st SearchType) (storageKey string, isKeyword bool) {
	fields := c.byOntology[fieldName]
	if len(fields) == 0 {
		return fieldName, false
	}

	wantKeyword := st == Exact
	for _, f := range fields {
		if f.Keyword == wantKeyword {
			return f.StorageKey, f.Keyword
		}
	}
	last := fields[len(fields)-1]
	return last.StorageKey, last.Keyword
}

func isWildcardish(q string) bool {
	return strings.ContainsAny(q, "*?")
}

// exactKeywordQuery implements step 3: EXACT on a keyword field.
func exactKeywordQuery(field, q string) bquery.Query {
	if isWildcardish(q) {
		wq := bleve.NewWildcardQuery(q)
		wq.SetField(field)
		return wq
	}
	tq := bleve.NewTermQuery(q)
	tq.SetField(field)
	return tq
}

// scoredKeywordQuery implements step 4: SCORED on a keyword field.
func scoredKeywordQuery(field, q string) bquery.Query {
	if isWildcardish(q) {
		wq := bleve.NewWildcardQuery(q)
		wq.SetField(field)
		return wq
	}
	tq := bleve.NewTermQuery(q)
	tq.SetField(field)

	pq := bleve.NewPrefixQuery(q)
	pq.SetField(field)
	pq.SetBoost(0.8)

	return bleve.NewDisjunctionQuery(tq, pq)
}

// scoredTokenizedQuery implements step 5: SCORED on a tokenised field.
// The bool return is false when the preprocessed string fails to yield
// any usable term, signalling the caller to fall back to the legacy
// path.
func (c *Constructor) scoredTokenizedQuery(fieldName, storageKey, q string) (bquery.Query, bool) {
	qPrime := preprocessScored(q)

	words := splitPreservingWildcards(qPrime)
	if len(words) == 0 {
		return nil, false
	}

	terms := make([]bquery.Query, 0, len(words))
	for _, w := range words {
		terms = append(terms, termOrWildcard(storageKey, w))
	}

	var q1 bquery.Query
	if len(terms) == 1 {
		q1 = terms[0]
	} else {
		q1 = bleve.NewConjunctionQuery(terms...)
	}

	if strings.Contains(strings.TrimSpace(qPrime), " ") {
		phraseTerms := make([]string, 0, len(words))
		for _, w := range words {
			phraseTerms = append(phraseTerms, strings.TrimRight(w, "*"))
		}
		pq := bleve.NewMatchPhraseQuery(strings.Join(phraseTerms, " "))
		pq.SetField(storageKey)
		q1 = bleve.NewDisjunctionQuery(q1, pq)
	}

	if !strings.Contains(q, " ") && len(words) > 1 {
		q2, err := c.constructed(fieldName, q, Exact)
		if err == nil && q2 != nil {
			return bleve.NewDisjunctionQuery(q2, q1), true
		}
	}

	return q1, true
}

// preprocessScored implements the q -> q' step: lowercase; replace any of
// '.', '-', '_' with a space while preserving '*'; append '*' if absent.
func preprocessScored(q string) string {
	lower := strings.ToLower(q)
	var b strings.Builder
	for _, r := range lower {
		switch r {
		case '.', '-', '_':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if !strings.Contains(out, "*") {
		out += "*"
	}
	return out
}

func splitPreservingWildcards(q string) []string {
	fields := strings.Fields(q)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func termOrWildcard(field, w string) bquery.Query {
	if isWildcardish(w) {
		wq := bleve.NewWildcardQuery(w)
		wq.SetField(field)
		return wq
	}
	tq := bleve.NewTermQuery(w)
	tq.SetField(field)
	return tq
}

// legacyQuery implements the legacy anchor-parsing fallback path.
func (c *Constructor) legacyQuery(fieldName, storageKey, q string) bquery.Query {
	s := q
	isClassname := fieldName == "classnames"

	if isClassname {
		s = strings.ReplaceAll(s, ".", "/")
	}

	prependStar, appendStar := true, true

	if strings.HasPrefix(s, "^") {
		s = strings.TrimPrefix(s, "^")
		prependStar = false
		if isClassname && !strings.HasPrefix(s, "/") {
			s = "/" + s
		}
	}

	if strings.HasSuffix(s, "$") {
		s = strings.TrimSuffix(s, "$")
		appendStar = false
	} else if strings.HasSuffix(s, "<") {
		s = strings.TrimSuffix(s, "<")
		appendStar = false
	} else if strings.HasSuffix(s, " ") {
		s = strings.TrimRight(s, " ")
		appendStar = false
	}

	if prependStar {
		s = "*" + s
	}
	if appendStar {
		s = s + "*"
	}

	switch {
	case !strings.Contains(s, "*"):
		tq := bleve.NewTermQuery(s)
		tq.SetField(storageKey)
		return tq
	case strings.HasSuffix(s, "*") && strings.Count(s, "*") == 1:
		pq := bleve.NewPrefixQuery(strings.TrimSuffix(s, "*"))
		pq.SetField(storageKey)
		return pq
	default:
		wq := bleve.NewWildcardQuery(s)
		wq.SetField(storageKey)
		return wq
	}
}
