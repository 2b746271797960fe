// Package idxcontext implements IndexingContext: the concurrent,
// lockable container that owns an on-disk inverted index and its
// lifecycle (open, commit, rollback, optimize, purge, replace, merge,
// close).
package idxcontext

import (
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/nxindex/core/internal/analyzer"
	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/lock"
)

// descriptorVersion is the version byte embedded in every descriptor's
// IDXINFO field. Bumping it without updating maxSupportedDescriptorVersion
// is a breaking wire-format change.
const descriptorVersion = 1

// maxSupportedDescriptorVersion is the highest descriptor version this
// build understands. Opening a directory whose descriptor advertises a
// higher version is refused rather than silently misreading it — the
// source only reads this byte, it never enforces it.
const maxSupportedDescriptorVersion = 1

// IndexingContext is a stateful, per-repository handle onto an on-disk
// (or in-memory, for tests) bleve index.
type IndexingContext struct {
	mu sync.RWMutex

	id             string
	repositoryID   string
	repositoryPath string
	repositoryURL  string
	indexUpdateURL string
	indexDir       string

	timestamp  time.Time
	searchable bool
	epoch      int

	gavCalc  gav.GavCalculator
	creators field.CreatorChain

	index   bleve.Index
	fslock  *lock.FileLock
	closed  bool
	pending *pendingBatch

	memOnly bool
}

// Options configures Open.
type Options struct {
	ID             string
	RepositoryID   string
	RepositoryPath string
	IndexDir       string
	RepositoryURL  string
	IndexUpdateURL string
	Creators       field.CreatorChain
	GavCalculator  gav.GavCalculator
	Reclaim        bool
	// MemOnly opens an in-memory index (used by tests); IndexDir and file
	// locking are skipped.
	MemOnly bool
}

// Open opens or creates the index directory described by opts. The
// directory is locked for the lifetime of the returned context; the
// descriptor is validated (or written, for a fresh/reclaimed context).
func Open(opts Options) (*IndexingContext, error) {
	if opts.GavCalculator == nil {
		opts.GavCalculator = gav.NewM2GavCalculator()
	}

	ic := &IndexingContext{
		id:             opts.ID,
		repositoryID:   opts.RepositoryID,
		repositoryPath: opts.RepositoryPath,
		repositoryURL:  opts.RepositoryURL,
		indexUpdateURL: opts.IndexUpdateURL,
		indexDir:       opts.IndexDir,
		gavCalc:        opts.GavCalculator,
		creators:       opts.Creators,
		searchable:     true,
		memOnly:        opts.MemOnly,
	}

	im, err := analyzer.NewIndexMapping(opts.Creators.AllFields())
	if err != nil {
		return nil, nxerrors.InternalError("building index mapping", err)
	}

	if opts.MemOnly {
		idx, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, nxerrors.InternalError("creating in-memory index", err)
		}
		ic.index = idx
		if err := ic.validateOrWriteDescriptor(false, opts.Reclaim); err != nil {
			return nil, err
		}
		ic.timestamp = time.Now()
		return ic, nil
	}

	fl := lock.New(opts.IndexDir)
	if err := fl.Lock(); err != nil {
		return nil, nxerrors.IOError("acquiring index directory lock", err)
	}
	ic.fslock = fl

	idx, existed, err := openOrCreate(opts.IndexDir, im)
	if err != nil {
		_ = fl.Unlock()
		return nil, err
	}
	ic.index = idx

	if err := ic.validateOrWriteDescriptor(existed, opts.Reclaim); err != nil {
		_ = idx.Close()
		_ = fl.Unlock()
		return nil, err
	}

	ic.timestamp = time.Now()
	return ic, nil
}

// openOrCreate opens dir as a bleve index if it already contains one, or
// creates a fresh index there otherwise. The bool result reports whether
// an existing index was opened.
func openOrCreate(dir string, im mapping.IndexMapping) (bleve.Index, bool, error) {
	idx, err := bleve.Open(dir)
	if err == nil {
		return idx, true, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist && err != bleve.ErrorIndexMetaMissing {
		return nil, false, nxerrors.CorruptIndexError("opening existing index directory", err)
	}

	idx, err = bleve.New(dir, im)
	if err != nil {
		return nil, false, nxerrors.IOError("creating index directory", err)
	}
	return idx, false, nil
}
