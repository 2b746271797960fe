package search_test

import (
	"context"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/require"

	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
	"github.com/nxindex/core/internal/query"
	"github.com/nxindex/core/internal/search"
)

func openMemContext(t *testing.T, id string) *idxcontext.IndexingContext {
	t.Helper()
	ic, err := idxcontext.Open(idxcontext.Options{
		ID:           id,
		RepositoryID: id,
		MemOnly:      true,
		Creators: field.CreatorChain{
			field.NewMinimalArtifactInfoIndexCreator(),
			field.NewJarFileContentsIndexCreator(),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ic.Close(false) })
	return ic
}

func addArtifact(t *testing.T, ic *idxcontext.IndexingContext, g, a, v string) {
	t.Helper()
	info := &gav.ArtifactInfo{GroupID: g, ArtifactID: a, Version: v, Extension: "jar", Packaging: "jar"}
	require.NoError(t, ic.AddArtifact(info))
}

func TestSearchFlatPaged_MergesAcrossContexts(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	require.NoError(t, central.Commit())

	snapshots := openMemContext(t, "snapshots")
	addArtifact(t, snapshots, "org.apache.maven", "maven-core", "3.9.0")
	require.NoError(t, snapshots.Commit())

	q := bleve.NewWildcardQuery("*")
	res, err := search.SearchFlatPaged(context.Background(), []*idxcontext.IndexingContext{central, snapshots}, q, 100, nil, false)
	require.NoError(t, err)
	require.False(t, res.LimitReached)
	require.Len(t, res.Hits, 2)
}

func TestSearchFlatPaged_LimitExceeded(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	addArtifact(t, central, "org.apache.maven", "maven-core", "3.9.0")
	require.NoError(t, central.Commit())

	q := bleve.NewWildcardQuery("*")
	res, err := search.SearchFlatPaged(context.Background(), []*idxcontext.IndexingContext{central}, q, 1, nil, false)
	require.NoError(t, err)
	require.True(t, res.LimitReached)
	require.Empty(t, res.Hits)
}

func TestSearchFlatPaged_SkipsNonSearchableUnlessForced(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	require.NoError(t, central.Commit())
	central.SetSearchable(false)

	q := bleve.NewWildcardQuery("*")
	res, err := search.SearchFlatPaged(context.Background(), []*idxcontext.IndexingContext{central}, q, 100, nil, false)
	require.NoError(t, err)
	require.Empty(t, res.Hits)

	forced, err := search.SearchFlatPaged(context.Background(), []*idxcontext.IndexingContext{central}, q, 100, nil, true)
	require.NoError(t, err)
	require.Len(t, forced.Hits, 1)
}

func TestSearchGrouped_FoldsByGroupArtifact(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.2")
	addArtifact(t, central, "org.apache.maven", "maven-core", "3.9.0")
	require.NoError(t, central.Commit())

	q := bleve.NewWildcardQuery("*")
	groups, err := search.SearchGrouped(context.Background(), []*idxcontext.IndexingContext{central}, q, search.GroupByGA, false)
	require.NoError(t, err)
	require.Len(t, groups["org.apache.maven:maven-model"], 2)
	require.Len(t, groups["org.apache.maven:maven-core"], 1)
}

func TestSearchIterator_YieldsAllAndReleasesLocks(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	addArtifact(t, central, "org.apache.maven", "maven-core", "3.9.0")
	require.NoError(t, central.Commit())

	q := bleve.NewWildcardQuery("*")
	cur, err := search.SearchIterator(context.Background(), []*idxcontext.IndexingContext{central}, q, 0, -1)
	require.NoError(t, err)

	count := 0
	for {
		_, ok := cur.Next()
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
	cur.Close()

	central.LockExclusive()
	central.UnlockExclusive()
}

// TestSearchFlatPaged_ExactKeywordQueryMatchesWholeValue guards against a
// regression where keyword fields were tokenized like any other field: an
// EXACT groupId query must match "org.apache.maven" as a single term, not
// as three separate tokens.
func TestSearchFlatPaged_ExactKeywordQueryMatchesWholeValue(t *testing.T) {
	central := openMemContext(t, "central")
	addArtifact(t, central, "org.apache.maven", "maven-model", "2.2.1")
	addArtifact(t, central, "org.example", "widget", "1.0")
	require.NoError(t, central.Commit())

	qc, err := query.NewConstructor(central.Creators().AllFields())
	require.NoError(t, err)

	bq, err := qc.Constructed("groupId", "org.apache.maven", query.Exact)
	require.NoError(t, err)
	require.NotNil(t, bq)

	res, err := search.SearchFlatPaged(context.Background(), []*idxcontext.IndexingContext{central}, bq, 100, nil, false)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "org.apache.maven", res.Hits[0].GroupID)
}
