package query_test

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxindex/core/internal/analyzer"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/query"
)

func testFields() []field.IndexerField {
	return []field.IndexerField{
		{Ontology: "groupId", StorageKey: "groupId", Stored: true, Indexed: true},
		{Ontology: "groupId", StorageKey: "g_kw", Stored: false, Indexed: true, Keyword: true},
		{Ontology: "classnames", StorageKey: "classnames", Stored: true, Indexed: true},
	}
}

func openTestIndex(t *testing.T) bleve.Index {
	t.Helper()
	m, err := analyzer.NewIndexMapping(testFields())
	require.NoError(t, err)
	idx, err := bleve.NewMemOnly(m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestConstructed_ExactKeywordMatchesWholeValue(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{
		"groupId": "org.apache.maven",
		"g_kw":    "org.apache.maven",
	}))
	require.NoError(t, idx.Index("2", map[string]interface{}{
		"groupId": "org.apache.commons",
		"g_kw":    "org.apache.commons",
	}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("groupId", "org.apache.maven", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "1", res.Hits[0].ID)
}

func TestConstructed_ExactOnPartialTermDoesNotMatch(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"g_kw": "org.apache.maven"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("groupId", "org", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Total, "EXACT must not match a substring of an untokenized keyword value")
}

func TestConstructed_ExactOnNonKeywordFieldReturnsNil(t *testing.T) {
	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("classnames", "org.example.Widget", query.Exact)
	require.NoError(t, err)
	assert.Nil(t, q, "EXACT against a field with no keyword variant must decline rather than silently tokenize")
}

func TestConstructed_ExactWildcardOverKeywordField(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"g_kw": "org.apache.maven"}))
	require.NoError(t, idx.Index("2", map[string]interface{}{"g_kw": "org.apache.commons"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("groupId", "org.apache.*", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestConstructed_ScoredKeywordFallsBackToPrefix(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"g_kw": "org.apache.maven"}))

	// Only the keyword variant of groupId is declared here, so SCORED
	// resolves to it; with testFields() SCORED picks the tokenised
	// "groupId" field instead.
	c, err := query.NewConstructor([]field.IndexerField{
		{Ontology: "groupId", StorageKey: "g_kw", Stored: false, Indexed: true, Keyword: true},
	})
	require.NoError(t, err)

	q, err := c.Constructed("groupId", "org.apache", query.Scored)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total, "a scored keyword query should still match via its prefix disjunct")
}

func TestConstructed_ScoredTokenizedMatchesOnAnyWord(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"classnames": "org.example.Widget"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("classnames", "widget", query.Scored)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
}

func TestConstructed_NotPresentBuildsExistsWildcard(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"classnames": "org.example.Widget"}))
	require.NoError(t, idx.Index("2", map[string]interface{}{"groupId": "org.example"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("classnames", query.NotPresent, query.Scored)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "1", res.Hits[0].ID)
}

func TestConstructed_ScoredMultiWordRequiresAllTerms(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"classnames": "org.apache.maven.Widget"}))
	require.NoError(t, idx.Index("2", map[string]interface{}{"classnames": "org.example.Gadget"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q, err := c.Constructed("classnames", "apache maven", query.Scored)
	require.NoError(t, err)
	require.NotNil(t, q)

	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "1", res.Hits[0].ID)
}

func TestConstructed_IsCachedAcrossCalls(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Index("1", map[string]interface{}{"g_kw": "org.apache.maven"}))

	c, err := query.NewConstructor(testFields())
	require.NoError(t, err)

	q1, err := c.Constructed("groupId", "org.apache.maven", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, q1)

	// A second call with the same arguments must hit the LRU cache and
	// still return a query usable against a live index.
	q2, err := c.Constructed("groupId", "org.apache.maven", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, q2)

	res, err := idx.Search(bleve.NewSearchRequest(q2))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
}
