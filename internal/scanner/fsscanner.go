package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/gav"
)

// FSScanner walks a local Maven2 repository tree and yields one
// ArtifactContext per artifact file it recognises.
type FSScanner struct {
	calc gav.GavCalculator
	// SkipExtensions are file suffixes ignored during the walk (checksum
	// and metadata siblings that are not themselves artifacts).
	SkipExtensions []string
}

// NewFSScanner constructs a filesystem scanner using calc to resolve
// discovered paths into coordinates.
func NewFSScanner(calc gav.GavCalculator) *FSScanner {
	return &FSScanner{
		calc:           calc,
		SkipExtensions: []string{".sha1", ".md5", ".asc", ".repositories", ".lastUpdated"},
	}
}

// Scan implements Scanner.
func (s *FSScanner) Scan(ctx context.Context, repoDir string, visit func(*ArtifactContext) error) error {
	repositoryID := filepath.Base(repoDir)

	return filepath.WalkDir(repoDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nxerrors.IOError("walking repository tree", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		if s.shouldSkip(path) {
			return nil
		}

		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return nxerrors.IOError("computing relative artifact path", err)
		}
		rel = filepath.ToSlash(rel)

		g, err := s.calc.PathToGav(rel)
		if err != nil {
			// Not every file under the tree is a recognised artifact
			// (checksum siblings, plugin metadata, stray files); skip
			// quietly rather than aborting the whole walk.
			slog.Debug("skipping unrecognised path", slog.String("path", rel), slog.String("error", err.Error()))
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nxerrors.IOError("stat artifact file", err)
		}

		return visit(&ArtifactContext{
			Gav:          g,
			Path:         path,
			Info:         info,
			RepositoryID: repositoryID,
		})
	})
}

func (s *FSScanner) shouldSkip(path string) bool {
	for _, ext := range s.SkipExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Watch monitors repoDir for filesystem changes and re-invokes visit for
// each artifact affected by a create or write event. Watch blocks until
// ctx is cancelled or the watcher fails to start.
func (s *FSScanner) Watch(ctx context.Context, repoDir string, visit func(*ArtifactContext) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nxerrors.IOError("starting filesystem watcher", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := filepath.WalkDir(repoDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return nxerrors.IOError("registering watch directories", err)
	}

	repositoryID := filepath.Base(repoDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if s.shouldSkip(ev.Name) {
				continue
			}
			rel, err := filepath.Rel(repoDir, ev.Name)
			if err != nil {
				continue
			}
			g, err := s.calc.PathToGav(filepath.ToSlash(rel))
			if err != nil {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if err := visit(&ArtifactContext{
				Gav:          g,
				Path:         ev.Name,
				Info:         info,
				RepositoryID: repositoryID,
			}); err != nil {
				return err
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("filesystem watch error", slog.String("error", werr.Error()))
		}
	}
}
