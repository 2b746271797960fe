package packer

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"sort"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// baselineFileName holds, gzip-compressed, one UINFO per line: the exact
// set of live artifacts present the last time Pack ran. It is not part
// of the published snapshot; it exists purely so the next Pack can
// compute an incremental delta by set difference rather than by
// inferring it from index docId ordering (spec.md §9's resolved Open
// Question — docId order is not stable across an index optimize).
const baselineFileName = ".nxindex-baseline"

func baselinePath(outDir string) string {
	return filepath.Join(outDir, baselineFileName)
}

// readBaseline loads the previous pack's live UINFO set. A missing or
// unreadable baseline is not an error: it signals the caller to reset
// the chain (spec.md §4.G "Chain reset").
func readBaseline(outDir string) (map[string]struct{}, bool) {
	f, err := os.Open(baselinePath(outDir))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer func() { _ = gz.Close() }()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			set[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false
	}
	return set, true
}

// writeBaseline persists the current live UINFO set for the next Pack.
func writeBaseline(outDir string, uinfos []string) error {
	sorted := append([]string(nil), uinfos...)
	sort.Strings(sorted)

	path := baselinePath(outDir)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return nxerrors.IOError("creating baseline file", err)
	}
	gz := gzip.NewWriter(f)
	bw := bufio.NewWriter(gz)
	for _, u := range sorted {
		if _, err := bw.WriteString(u); err != nil {
			_ = f.Close()
			return nxerrors.IOError("writing baseline entry", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = f.Close()
			return nxerrors.IOError("writing baseline entry", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return nxerrors.IOError("flushing baseline file", err)
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return nxerrors.IOError("closing baseline gzip stream", err)
	}
	if err := f.Close(); err != nil {
		return nxerrors.IOError("closing baseline file", err)
	}
	return os.Rename(tmp, path)
}
