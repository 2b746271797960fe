package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 20, cfg.Index.MaxIndexChunks)
	assert.True(t, cfg.Index.CreateChecksumFiles)
	assert.True(t, cfg.Index.CreateIncrementalChunks)
	assert.False(t, cfg.Index.ReclaimIndex)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromProjectFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
version: 1
repositories:
  - id: central
    path: /repo/central
    index_dir: /repo/.index
index:
  max_index_chunks: 5
  create_incremental_chunks: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".nxindex.yaml"), []byte(yaml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, cfg.Repositories, 1)
	assert.Equal(t, "central", cfg.Repositories[0].ID)
	assert.Equal(t, 5, cfg.Index.MaxIndexChunks)
	assert.False(t, cfg.Index.CreateIncrementalChunks)
}

func TestLoadWithNoProjectFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Index.MaxIndexChunks, cfg.Index.MaxIndexChunks)
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NXINDEX_MAX_INDEX_CHUNKS", "7")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Index.MaxIndexChunks)
}

func TestValidateRejectsDuplicateRepositoryID(t *testing.T) {
	cfg := NewConfig()
	cfg.Repositories = []RepositoryConfig{
		{ID: "central", Path: "/a"},
		{ID: "central", Path: "/b"},
	}

	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsBadTransport(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Transport = "carrier-pigeon"

	err := cfg.Validate()
	require.Error(t, err)
}

func TestWriteAndReloadYAML(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Repositories = []RepositoryConfig{{ID: "central", Path: "/repo"}}

	path := filepath.Join(dir, ".nxindex.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	reloaded, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, reloaded.Repositories, 1)
	assert.Equal(t, "central", reloaded.Repositories[0].ID)
}
