package packer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// Property key names, grounded on the original implementation's
// org.apache.maven.index.context.IndexingContext constants
// (INDEX_ID, INDEX_TIMESTAMP, INDEX_CHAIN_ID, INDEX_CHUNK_COUNTER,
// INDEX_CHUNK_PREFIX) so a published properties file uses the same key
// vocabulary a consumer of the original format would expect.
const (
	propID              = "nexus.index.id"
	propTimestamp       = "nexus.index.timestamp"
	propChainID         = "nexus.index.chain-id"
	propLastIncremental = "nexus.index.last-incremental"
	chunkKeyPrefix      = "nexus.index.incremental-"

	timeLayout = "20060102150405.000 -0700"
)

// Properties is the parsed contents of an <INDEX_FILE>.properties file,
// plus internal-only bookkeeping (Epoch) that never appears in the
// published text file.
type Properties struct {
	ID              string
	Timestamp       time.Time
	ChainID         string
	LastIncremental int
	// Chunks[k] is the counter value stored under incremental-k, ordered
	// k=0 (most recent) upward.
	Chunks []int
	// Epoch mirrors the IndexingContext.Epoch() observed at the time this
	// state was written. It is internal bookkeeping recorded only in the
	// SQLite-backed publication-state row (state.go), never in the
	// published .properties text file, since spec.md §6 fixes that file's
	// key set.
	Epoch int
}

func propertiesPath(outDir string) string {
	return filepath.Join(outDir, indexFileName+".properties")
}

// ParsePropertiesFile loads outDir's published properties file directly,
// without requiring an open IndexingContext or the SQLite-backed
// publication state — used by the `identify` CLI surface to inspect a
// publication directory (local or a synced copy of a remote one) on its
// own.
func ParsePropertiesFile(outDir string) (*Properties, error) {
	return readProperties(outDir)
}

// readProperties loads an existing properties file. A missing file is
// not an error: it returns (nil, nil), signalling "no chain yet".
func readProperties(outDir string) (*Properties, error) {
	path := propertiesPath(outDir)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, nxerrors.IOError("reading index properties", err)
	}
	defer func() { _ = f.Close() }()
	return ParseProperties(f)
}

// ParseProperties parses the text/plain contents of an
// <INDEX_FILE>.properties file, whether read from disk or fetched from a
// remote mirror (see internal/updater).
func ParseProperties(r io.Reader) (*Properties, error) {
	raw := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		raw[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, nxerrors.IOError("scanning index properties", err)
	}

	p := &Properties{ID: raw[propID], ChainID: raw[propChainID], LastIncremental: -1}
	if ts, ok := raw[propTimestamp]; ok {
		if parsed, err := time.Parse(timeLayout, ts); err == nil {
			p.Timestamp = parsed
		}
	}
	if v, ok := raw[propLastIncremental]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.LastIncremental = n
		}
	}

	var indices []int
	for k := range raw {
		if strings.HasPrefix(k, chunkKeyPrefix) {
			if idx, err := strconv.Atoi(strings.TrimPrefix(k, chunkKeyPrefix)); err == nil {
				indices = append(indices, idx)
			}
		}
	}
	sort.Ints(indices)
	for _, idx := range indices {
		n, _ := strconv.Atoi(raw[fmt.Sprintf("%s%d", chunkKeyPrefix, idx)])
		p.Chunks = append(p.Chunks, n)
	}
	return p, nil
}

// writeProperties writes p atomically: write to a temp file in the same
// directory, then os.Rename over the final path, so a crash mid-write
// never leaves a half-written properties file (spec.md §4.G step 5).
func writeProperties(outDir string, p *Properties) error {
	path := propertiesPath(outDir)
	tmp := path + ".tmp"

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", propID, p.ID)
	fmt.Fprintf(&b, "%s=%s\n", propTimestamp, p.Timestamp.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "%s=%s\n", propChainID, p.ChainID)
	fmt.Fprintf(&b, "%s=%d\n", propLastIncremental, p.LastIncremental)
	for i, counter := range p.Chunks {
		fmt.Fprintf(&b, "%s%d=%d\n", chunkKeyPrefix, i, counter)
	}

	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return nxerrors.IOError("writing temporary index properties", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nxerrors.IOError("renaming index properties into place", err)
	}
	return nil
}
