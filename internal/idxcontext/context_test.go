package idxcontext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
)

func defaultCreators() field.CreatorChain {
	return field.CreatorChain{
		field.NewMinimalArtifactInfoIndexCreator(),
		field.NewJarFileContentsIndexCreator(),
	}
}

func openTestContext(t *testing.T, dir, repoID string) *idxcontext.IndexingContext {
	t.Helper()
	ic, err := idxcontext.Open(idxcontext.Options{
		ID:           repoID,
		RepositoryID: repoID,
		IndexDir:     dir,
		Creators:     defaultCreators(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ic.Close(false) })
	return ic
}

func TestOpen_WritesDescriptorOnFreshDirectory(t *testing.T) {
	ic := openTestContext(t, t.TempDir(), "central")
	assert.Equal(t, "central", ic.RepositoryID())
}

func TestOpen_RejectsMismatchedRepositoryWithoutReclaim(t *testing.T) {
	dir := t.TempDir()
	ic := openTestContext(t, dir, "central")

	info := &gav.ArtifactInfo{GroupID: "org.apache.maven", ArtifactID: "maven-model", Version: "2.2.1", Extension: "jar", Packaging: "jar"}
	require.NoError(t, ic.AddArtifact(info))
	require.NoError(t, ic.Commit())
	require.NoError(t, ic.Close(false))

	_, err := idxcontext.Open(idxcontext.Options{
		ID: "other", RepositoryID: "other", IndexDir: dir, Creators: defaultCreators(),
	})
	assert.Error(t, err)
}

func TestAddArtifact_RoundTrip(t *testing.T) {
	ic, err := idxcontext.Open(idxcontext.Options{
		ID: "central", RepositoryID: "central", Creators: defaultCreators(), MemOnly: true,
	})
	require.NoError(t, err)
	defer func() { _ = ic.Close(false) }()

	info := &gav.ArtifactInfo{
		GroupID: "org.apache.maven", ArtifactID: "maven-model", Version: "2.2.1",
		Extension: "jar", Packaging: "jar",
	}
	require.NoError(t, ic.AddArtifact(info))
	require.NoError(t, ic.Commit())

	doc, ok, err := ic.Lookup(info.UINFO())
	require.NoError(t, err)
	require.True(t, ok)

	extracted, recognised := ic.Creators().Extract(doc)
	require.True(t, recognised)
	assert.Equal(t, info.UINFO(), extracted.UINFO())
}

func TestMerge_WithTombstone(t *testing.T) {
	aDir, dDir := t.TempDir(), t.TempDir()

	a := openTestContext(t, aDir, "central")
	x := &gav.ArtifactInfo{GroupID: "com.example", ArtifactID: "x", Version: "1.0", Extension: "jar", Packaging: "jar"}
	require.NoError(t, a.AddArtifact(x))
	require.NoError(t, a.Commit())

	d, err := idxcontext.Open(idxcontext.Options{ID: "d", RepositoryID: "central", IndexDir: dDir, Creators: defaultCreators()})
	require.NoError(t, err)
	require.NoError(t, d.AddArtifact(gav.NewTombstone(x.UINFO())))
	require.NoError(t, d.Commit())
	require.NoError(t, d.Close(false))

	require.NoError(t, a.Merge(dDir, nil))

	_, liveOK, err := a.Lookup(x.UINFO())
	require.NoError(t, err)
	assert.True(t, liveOK) // one document remains under that UINFO key: the tombstone
}

func TestPurge_RemovesAllDocuments(t *testing.T) {
	ic, err := idxcontext.Open(idxcontext.Options{
		ID: "central", RepositoryID: "central", Creators: defaultCreators(), MemOnly: true,
	})
	require.NoError(t, err)
	defer func() { _ = ic.Close(false) }()

	info := &gav.ArtifactInfo{GroupID: "com.example", ArtifactID: "x", Version: "1.0", Extension: "jar", Packaging: "jar"}
	require.NoError(t, ic.AddArtifact(info))
	require.NoError(t, ic.Commit())

	require.NoError(t, ic.Purge())

	_, ok, err := ic.Lookup(info.UINFO())
	require.NoError(t, err)
	assert.False(t, ok)
}
