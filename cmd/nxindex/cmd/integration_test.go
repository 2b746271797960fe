package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtureRepo lays out one artifact under a Maven2-style tree:
// org/example/widget/1.0/widget-1.0.jar
func writeFixtureRepo(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "org", "example", "widget", "1.0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget-1.0.jar"), []byte("not a real jar"), 0o644))
}

func TestIndexAndStatusAndSearch(t *testing.T) {
	repoDir := t.TempDir()
	writeFixtureRepo(t, repoDir)
	indexDir := t.TempDir()

	indexCmd := newIndexCmd()
	indexCmd.SetArgs([]string{"--repository", repoDir, "--index", indexDir})
	var indexOut bytes.Buffer
	indexCmd.SetOut(&indexOut)
	indexCmd.SetErr(&indexOut)
	require.NoError(t, indexCmd.Execute())
	assert.Contains(t, indexOut.String(), "1 artifacts")

	statusCmd := newStatusCmd()
	statusCmd.SetArgs([]string{"--index", indexDir})
	var statusOut bytes.Buffer
	statusCmd.SetOut(&statusOut)
	require.NoError(t, statusCmd.Execute())
	assert.Contains(t, statusOut.String(), "repository:")

	searchCmd := newSearchCmd()
	searchCmd.SetArgs([]string{"--index", indexDir, "--field", "groupId", "--query", "org.example", "--type", "exact"})
	var searchOut bytes.Buffer
	searchCmd.SetOut(&searchOut)
	require.NoError(t, searchCmd.Execute())
	assert.Contains(t, searchOut.String(), "widget")

	doctorCmd := newDoctorCmd()
	doctorCmd.SetArgs([]string{"--index", indexDir})
	var doctorOut bytes.Buffer
	doctorCmd.SetOut(&doctorOut)
	require.NoError(t, doctorCmd.Execute())
	assert.Contains(t, doctorOut.String(), "descriptor")
}

func TestPackAndIdentify(t *testing.T) {
	repoDir := t.TempDir()
	writeFixtureRepo(t, repoDir)
	indexDir := t.TempDir()
	outDir := t.TempDir()

	indexCmd := newIndexCmd()
	indexCmd.SetArgs([]string{"--repository", repoDir, "--index", indexDir})
	indexCmd.SetOut(&bytes.Buffer{})
	indexCmd.SetErr(&bytes.Buffer{})
	require.NoError(t, indexCmd.Execute())

	packCmd := newPackCmd()
	packCmd.SetArgs([]string{"--index", indexDir, "--output", outDir})
	var packOut bytes.Buffer
	packCmd.SetOut(&packOut)
	require.NoError(t, packCmd.Execute())
	assert.Contains(t, packOut.String(), "chain-id:")

	identifyCmd := newIdentifyCmd()
	identifyCmd.SetArgs([]string{"--index", outDir})
	var identifyOut bytes.Buffer
	identifyCmd.SetOut(&identifyOut)
	require.NoError(t, identifyCmd.Execute())
	assert.Contains(t, identifyOut.String(), "local chain-id:")
}
