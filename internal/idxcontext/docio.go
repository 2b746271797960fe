package idxcontext

import (
	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
)

// getStoredDoc fetches the stored fields of a single document by ID.
// Returns ok=false if no such document exists.
func getStoredDoc(idx bleve.Index, id string, fields []string) (map[string]interface{}, bool, error) {
	q := bleve.NewDocIDQuery([]string{id})
	req := bleve.NewSearchRequest(q)
	req.Fields = fields
	req.Size = 1

	res, err := idx.Search(req)
	if err != nil {
		return nil, false, nxerrors.IOError("fetching stored document", err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	return res.Hits[0].Fields, true, nil
}

// fieldsToDocument converts a search hit's stored Fields map into an
// IndexDocument field bag.
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

// documentToBleve converts a field bag into the map[string]interface{}
// shape bleve's default document mapping expects.
func documentToBleve(doc *field.IndexDocument) map[string]interface{} {
	out := make(map[string]interface{}, len(doc.Values))
	for k, v := range doc.Values {
		out[k] = v
	}
	return out
}

// Lookup fetches the document stored under id (typically a UINFO key)
// and returns it as a field bag. ok is false when no such document
// exists.
func (ic *IndexingContext) Lookup(id string) (*field.IndexDocument, bool, error) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	fields, ok, err := getStoredDoc(ic.index, id, []string{"*"})
	if err != nil || !ok {
		return nil, ok, err
	}
	return fieldsToDocument(fields), true, nil
}
