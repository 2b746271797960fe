package idxcontext

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
)

// Lock acquires the shared lease. Shared holders may call Index(), read
// operations, and search; they never see the triple replaced out from
// under them mid-call.
func (ic *IndexingContext) Lock() { ic.mu.RLock() }

// Unlock releases a shared lease acquired via Lock.
func (ic *IndexingContext) Unlock() { ic.mu.RUnlock() }

// LockExclusive acquires the exclusive lease, excluding all shared
// holders and any other exclusive holder.
func (ic *IndexingContext) LockExclusive() { ic.mu.Lock() }

// UnlockExclusive releases an exclusive lease acquired via LockExclusive.
func (ic *IndexingContext) UnlockExclusive() { ic.mu.Unlock() }

// pendingBatch accumulates staged mutations between commits. Bleve has no
// native uncommitted-writer concept (Batch() applies immediately), so the
// commit/rollback boundary described in the source is modeled here as an
// in-memory staging batch that is only applied to the underlying index on
// Commit.
type pendingBatch struct {
	batch *bleve.Batch
}

// AddArtifact stages info for indexing: the creator chain writes info's
// fields into a document that will become visible on the next Commit. A
// tombstone (info.Deleted() set) is staged as a single-field DELETED
// marker document under the same UINFO key, so a UINFO ever has at most
// one live-or-tombstone document.
func (ic *IndexingContext) AddArtifact(info *gav.ArtifactInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	var bleveDoc map[string]interface{}
	if uinfo, tomb := info.Deleted(); tomb {
		bleveDoc = map[string]interface{}{field.StorageKeyDeleted: uinfo}
	} else {
		doc, err := ic.creators.Update(info)
		if err != nil {
			return err
		}
		bleveDoc = documentToBleve(doc)
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.closed {
		return nxerrors.New(nxerrors.ErrCodeIndexLocked, "context is closed", nil)
	}
	ic.ensurePending()
	return ic.pending.batch.Index(info.UINFO(), bleveDoc)
}

// DeleteArtifact stages removal of every document matching uinfo.
func (ic *IndexingContext) DeleteArtifact(uinfo string) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.closed {
		return nxerrors.New(nxerrors.ErrCodeIndexLocked, "context is closed", nil)
	}
	ic.ensurePending()
	ic.pending.batch.Delete(uinfo)
	return nil
}

func (ic *IndexingContext) ensurePending() {
	if ic.pending == nil {
		ic.pending = &pendingBatch{batch: ic.index.NewBatch()}
	}
}

// Commit flushes staged mutations and advances the timestamp. Readers
// opportunistically refresh: bleve's own index already serves the newly
// committed generation to any Search call issued after Batch returns, so
// no separate reader-swap step is required here.
func (ic *IndexingContext) Commit() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.commitLocked()
}

func (ic *IndexingContext) commitLocked() error {
	if ic.pending == nil {
		ic.timestamp = time.Now()
		return nil
	}
	batch := ic.pending.batch
	ic.pending = nil
	if err := ic.index.Batch(batch); err != nil {
		ic.closed = true
		return nxerrors.CorruptIndexError("committing batch", err)
	}
	ic.timestamp = time.Now()
	return ic.warmup()
}

// Rollback discards any staged, uncommitted mutations.
func (ic *IndexingContext) Rollback() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.pending = nil
	return nil
}

// warmup issues a cheap query to populate index caches after a commit.
func (ic *IndexingContext) warmup() error {
	req := bleve.NewSearchRequest(bleve.NewWildcardQuery("*"))
	req.Size = 1
	req.Fields = []string{field.StorageKeyGroupID}
	_, _ = ic.index.Search(req)
	return nil
}

// Optimize compacts the index, then commits. Bleve's scorch backend
// manages its own segment merging; Optimize here forces a commit of any
// pending batch so the compaction has the latest state to work with.
func (ic *IndexingContext) Optimize() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.commitLocked()
}

// Purge deletes every document, restores the descriptor, and rebuilds
// (empty) groups.
func (ic *IndexingContext) Purge() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Fields = []string{}
	req.Size = 10000

	for {
		res, err := ic.index.Search(req)
		if err != nil {
			return nxerrors.IOError("scanning documents to purge", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		batch := ic.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := ic.index.Batch(batch); err != nil {
			return nxerrors.IOError("purging documents", err)
		}
	}

	ic.pending = nil
	if err := ic.writeDescriptor(); err != nil {
		return err
	}
	if err := ic.rebuildGroups(); err != nil {
		return err
	}
	ic.timestamp = time.Now()
	ic.epoch++
	slog.Info("index purged", slog.String("repository_id", ic.repositoryID), slog.Int("epoch", ic.epoch))
	return nil
}

// Close writes the timestamp to the index directory's "timestamp" file
// (the file Merge and Replace read from a source directory), closes the
// index, releases the file lock, and optionally deletes the on-disk files.
func (ic *IndexingContext) Close(deleteFiles bool) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.closed {
		return nil
	}
	ic.closed = true

	var closeErr error
	if ic.index != nil {
		closeErr = ic.index.Close()
	}
	if !ic.memOnly && !deleteFiles && ic.indexDir != "" {
		tsPath := filepath.Join(ic.indexDir, "timestamp")
		if ic.timestamp.IsZero() {
			_ = os.Remove(tsPath)
		} else if err := os.WriteFile(tsPath, []byte(ic.timestamp.Format("20060102150405.000 -0700")), 0o644); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	if ic.fslock != nil {
		_ = ic.fslock.Unlock()
	}
	if deleteFiles && ic.indexDir != "" {
		if err := os.RemoveAll(ic.indexDir); err != nil {
			return nxerrors.IOError("deleting index directory", err)
		}
	}
	if closeErr != nil {
		return nxerrors.IOError("closing index", closeErr)
	}
	slog.Debug("index context closed", slog.String("repository_id", ic.repositoryID), slog.Bool("deleted", deleteFiles))
	return nil
}

// Searchable reports whether this context participates in searches that
// don't explicitly force it.
func (ic *IndexingContext) Searchable() bool {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.searchable
}

// SetSearchable toggles the searchable flag.
func (ic *IndexingContext) SetSearchable(v bool) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.searchable = v
}

// Epoch returns a counter bumped by Purge and Replace. internal/packer
// treats a change in Epoch since the last publication as the signal
// that the prior incremental baseline is gone (spec.md §4.G "Chain
// reset ... the context was purged or replaced and the prior baseline
// is gone"), forcing a fresh chain rather than trusting a UINFO-set
// diff against data that no longer has any relationship to the current
// index contents.
func (ic *IndexingContext) Epoch() int {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.epoch
}

// Timestamp returns the wall-clock time of the last committed update.
func (ic *IndexingContext) Timestamp() time.Time {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.timestamp
}

// UpdateTimestamp explicitly sets (or, with the zero value, resets) the
// context's timestamp, bypassing the normal monotonic commit advance.
func (ic *IndexingContext) UpdateTimestamp(t time.Time) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.timestamp = t
}

// ID, RepositoryID, IndexDir expose immutable identity fields.
func (ic *IndexingContext) ID() string           { return ic.id }
func (ic *IndexingContext) RepositoryID() string { return ic.repositoryID }
func (ic *IndexingContext) IndexDir() string     { return ic.indexDir }

// Index exposes the underlying bleve index for the search package. It
// must only be called by holders of a shared or exclusive lease.
func (ic *IndexingContext) Index() bleve.Index { return ic.index }

// Creators exposes the context's creator chain for document
// reconstruction.
func (ic *IndexingContext) Creators() field.CreatorChain { return ic.creators }

// GavCalculator exposes the context's coordinate calculator.
func (ic *IndexingContext) GavCalculator() gav.GavCalculator { return ic.gavCalc }
