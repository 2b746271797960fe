package idxcontext

import (
	"io"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// Replace atomically swaps this context's on-disk contents for those in
// sourceDir: existing files are removed, the source directory's contents
// are copied in, the descriptor is reclaimed for this repository, and
// the source's timestamp is adopted. Replace takes the exclusive lease
// itself.
func (ic *IndexingContext) Replace(sourceDir string) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.memOnly {
		return nxerrors.New(nxerrors.ErrCodeInvalidInput, "cannot replace an in-memory context", nil)
	}

	ic.pending = nil
	if ic.index != nil {
		_ = ic.index.Close()
	}
	if err := os.RemoveAll(ic.indexDir); err != nil {
		return nxerrors.IOError("removing existing index files", err)
	}
	if err := copyDir(sourceDir, ic.indexDir); err != nil {
		return nxerrors.IOError("copying replacement index files", err)
	}

	idx, err := bleve.Open(ic.indexDir)
	if err != nil {
		return nxerrors.CorruptIndexError("opening replaced index", err)
	}
	ic.index = idx

	if err := ic.validateOrWriteDescriptor(true, true); err != nil {
		return err
	}

	if ts, err := sourceTimestamp(sourceDir); err == nil {
		ic.timestamp = ts
	}
	ic.epoch++
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}
