package idxcontext

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
)

// internalDocIDs are never treated as artifact documents during a scan or
// merge.
var internalDocIDs = map[string]struct{}{
	descriptorDocID: {}, allGroupsDocID: {}, rootGroupsDocID: {},
}

// MergeFilter decides whether a source document should be excluded from
// a merge.
type MergeFilter func(uinfo string) bool

// Merge folds every non-filtered document from an external directory
// into this context: absent UINFOs are added, present ones are skipped,
// and tombstones delete every matching document before being persisted
// themselves. Groups are rebuilt and the newer of the two timestamps is
// kept. Merge takes the exclusive lease itself.
func (ic *IndexingContext) Merge(sourceDir string, filter MergeFilter) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	src, err := bleve.Open(sourceDir)
	if err != nil {
		return nxerrors.IOError("opening merge source directory", err)
	}
	defer func() { _ = src.Close() }()

	batch := ic.index.NewBatch()
	staged := 0
	merged := 0

	flush := func() error {
		if staged == 0 {
			return nil
		}
		if err := ic.index.Batch(batch); err != nil {
			return nxerrors.IOError("applying merge batch", err)
		}
		batch = ic.index.NewBatch()
		staged = 0
		return nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Fields = []string{"*"}
	req.Size = 1000

	for from := 0; ; from += req.Size {
		req.From = from
		res, err := src.Search(req)
		if err != nil {
			return nxerrors.IOError("scanning merge source", err)
		}
		if len(res.Hits) == 0 {
			break
		}

		for _, hit := range res.Hits {
			if _, internal := internalDocIDs[hit.ID]; internal {
				continue
			}

			doc := fieldsToDocument(hit.Fields)
			if deleted := doc.GetString(field.StorageKeyDeleted); deleted != "" {
				if filter != nil && filter(deleted) {
					continue
				}
				batch.Delete(deleted)
				batch.Index(deleted, map[string]interface{}{field.StorageKeyDeleted: deleted})
				staged++
				merged++
				continue
			}

			uinfo := doc.GetString(field.StorageKeyUinfo)
			if uinfo == "" {
				continue
			}
			if filter != nil && filter(uinfo) {
				continue
			}

			_, exists, err := getStoredDoc(ic.index, uinfo, nil)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			info, ok := ic.creators.Extract(doc)
			if !ok {
				continue
			}
			normalised, err := ic.creators.Update(info)
			if err != nil {
				return err
			}
			batch.Index(uinfo, documentToBleve(normalised))
			staged++
			merged++
		}

		if err := flush(); err != nil {
			return err
		}
		if len(res.Hits) < req.Size {
			break
		}
	}

	if err := ic.rebuildGroups(); err != nil {
		return err
	}

	srcTimestamp, err := sourceTimestamp(sourceDir)
	if err == nil && srcTimestamp.After(ic.timestamp) {
		ic.timestamp = srcTimestamp
	}

	slog.Info("merged external index", slog.String("source", sourceDir), slog.Int("documents", merged))

	// Merge applies its batches directly above rather than staging them in
	// ic.pending, so commitLocked's pending-nil branch would stomp the
	// timestamp just computed. warmup alone is what a commit still owes.
	return ic.warmup()
}

// sourceTimestamp reads the sibling "timestamp" file next to a source
// index directory, if present.
func sourceTimestamp(dir string) (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(dir, "timestamp"))
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102150405.000 -0700", string(data))
}
