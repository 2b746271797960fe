// Package scanner defines the external contract between the filesystem
// walker that feeds coordinates to the indexer and the indexing core.
// The walker implementation itself is a plug-point; only ArtifactContext
// and the Scanner interface are load-bearing for the core.
package scanner

import (
	"context"
	"io/fs"

	"github.com/nxindex/core/internal/gav"
)

// ArtifactContext describes one on-disk artifact discovered by a scan,
// ready to be handed to the field-extraction pipeline.
type ArtifactContext struct {
	Gav          *gav.Gav
	Path         string
	Info         fs.FileInfo
	RepositoryID string
}

// Scanner walks a repository root and yields ArtifactContext values.
// Implementations may walk the local filesystem, replay a manifest, or
// watch for changes; the core depends only on this interface.
type Scanner interface {
	// Scan walks repoDir and invokes visit once per discovered artifact.
	// Scan returns when the walk completes, the context is cancelled, or
	// visit returns a non-nil error (which aborts the walk).
	Scan(ctx context.Context, repoDir string, visit func(*ArtifactContext) error) error
}
