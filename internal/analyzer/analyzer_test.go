package analyzer_test

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxindex/core/internal/analyzer"
	"github.com/nxindex/core/internal/field"
)

func TestNewIndexMapping_TokenizesAndLowercases(t *testing.T) {
	m, err := analyzer.NewIndexMapping(nil)
	require.NoError(t, err)

	a := m.AnalyzerNamed(analyzer.AnalyzerName)
	require.NotNil(t, a)

	stream := a.Analyze([]byte("Commons-Logging_1.2"))
	var terms []string
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}

	assert.Equal(t, []string{"commons", "logging", "1", "2"}, terms)
}

func TestNewIndexMapping_UsableByBleve(t *testing.T) {
	m, err := analyzer.NewIndexMapping(nil)
	require.NoError(t, err)

	idx, err := bleve.NewMemOnly(m)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Index("1", map[string]interface{}{"name": "commons-logging"}))

	res, err := idx.Search(bleve.NewSearchRequest(bleve.NewMatchQuery("logging")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
}

func TestNewIndexMapping_KeywordFieldIsNotTokenized(t *testing.T) {
	fields := []field.IndexerField{
		{Ontology: "groupId", StorageKey: "g_kw", Stored: true, Indexed: true, Keyword: true},
	}
	m, err := analyzer.NewIndexMapping(fields)
	require.NoError(t, err)

	idx, err := bleve.NewMemOnly(m)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Index("1", map[string]interface{}{"g_kw": "org.example"}))

	exactQ := bleve.NewTermQuery("org.example")
	exactQ.SetField("g_kw")
	exact, err := idx.Search(bleve.NewSearchRequest(exactQ))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), exact.Total, "the untokenized value should match a TermQuery for the whole string")

	partialQ := bleve.NewTermQuery("org")
	partialQ.SetField("g_kw")
	partial, err := idx.Search(bleve.NewSearchRequest(partialQ))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), partial.Total, "a keyword field must not have been split into sub-terms")
}

func TestNewIndexMapping_NonKeywordFieldIsTokenized(t *testing.T) {
	fields := []field.IndexerField{
		{Ontology: "groupId", StorageKey: "g_kw", Stored: true, Indexed: true, Keyword: true},
	}
	m, err := analyzer.NewIndexMapping(fields)
	require.NoError(t, err)

	idx, err := bleve.NewMemOnly(m)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Index("1", map[string]interface{}{"classnames": "org.example.Widget"}))

	q := bleve.NewTermQuery("widget")
	q.SetField("classnames")
	res, err := idx.Search(bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total, "fields absent from the keyword schema should still tokenize via the default analyzer")
}
