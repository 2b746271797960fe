package packer

import (
	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/idxcontext"
)

const scanPageSize = 1000

// snapshot is the full live/tombstone state of a context at pack time.
type snapshot struct {
	live      map[string]*field.IndexDocument // uinfo -> stored fields
	tombstone map[string]struct{}             // uinfo of documents deleted since some earlier baseline
}

// scanLive walks every document in ic, splitting it into live artifacts
// and tombstone markers. Internal marker documents (descriptor, group
// cache) carry no UINFO or DELETED value, and are skipped for that
// reason.
func scanLive(ic *idxcontext.IndexingContext) (*snapshot, error) {
	ic.Lock()
	defer ic.Unlock()

	idx := ic.Index()
	snap := &snapshot{live: make(map[string]*field.IndexDocument), tombstone: make(map[string]struct{})}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Fields = []string{"*"}
	req.Size = scanPageSize

	for from := 0; ; from += req.Size {
		req.From = from
		res, err := idx.Search(req)
		if err != nil {
			return nil, nxerrors.New(nxerrors.ErrCodePackFailed, "scanning index for pack", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, hit := range res.Hits {
			doc := fieldsToDocument(hit.Fields)
			if deleted := doc.GetString(field.StorageKeyDeleted); deleted != "" {
				snap.tombstone[deleted] = struct{}{}
				continue
			}
			uinfo := doc.GetString(field.StorageKeyUinfo)
			if uinfo == "" {
				continue // internal marker document (descriptor, group cache)
			}
			snap.live[uinfo] = doc
		}
		if len(res.Hits) < scanPageSize {
			break
		}
	}
	return snap, nil
}

func fieldsToDocument(fields map[string]interface{}) *field.IndexDocument {
	doc := field.NewIndexDocument()
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			doc.Set(k, t)
		case []interface{}:
			values := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok {
					values = append(values, s)
				}
			}
			doc.SetMulti(k, values)
		}
	}
	return doc
}
