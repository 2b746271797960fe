package idxcontext

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
)

const (
	allGroupsDocID  = "$ALL_GROUPS_INFO$"
	rootGroupsDocID = "$ROOT_GROUPS_INFO$"

	groupsValueKey = "groups"
)

// AllGroups returns every distinct groupId seen by the context. O(1): a
// single stored document is loaded and split.
func (ic *IndexingContext) AllGroups() ([]string, error) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.loadGroupDoc(allGroupsDocID)
}

// RootGroups returns the first path segment of every groupId seen by the
// context.
func (ic *IndexingContext) RootGroups() ([]string, error) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.loadGroupDoc(rootGroupsDocID)
}

func (ic *IndexingContext) loadGroupDoc(id string) ([]string, error) {
	fields, ok, err := getStoredDoc(ic.index, id, []string{groupsValueKey})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	joined, _ := fields[groupsValueKey].(string)
	if joined == "" {
		return nil, nil
	}
	return strings.Split(joined, "\x1f"), nil
}

// RebuildGroups forces a full rescan and rewrite of the group cache
// documents. RebuildGroups takes the exclusive lease itself.
func (ic *IndexingContext) RebuildGroups() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.rebuildGroups()
}

// rebuildGroups scans every live document, extracts groupId, and rewrites
// both the allGroups and rootGroups documents atomically (as a single
// batch). Callers must already hold the exclusive lease.
func (ic *IndexingContext) rebuildGroups() error {
	allSet := make(map[string]struct{})
	rootSet := make(map[string]struct{})

	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Fields = []string{field.StorageKeyGroupID}
	req.Size = 10000

	for from := 0; ; from += req.Size {
		req.From = from
		res, err := ic.index.Search(req)
		if err != nil {
			return nxerrors.IOError("scanning documents to rebuild groups", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, hit := range res.Hits {
			g, _ := hit.Fields[field.StorageKeyGroupID].(string)
			if g == "" {
				continue
			}
			allSet[g] = struct{}{}
			if idx := strings.Index(g, "."); idx > 0 {
				rootSet[g[:idx]] = struct{}{}
			} else {
				rootSet[g] = struct{}{}
			}
		}
		if len(res.Hits) < req.Size {
			break
		}
	}

	batch := ic.index.NewBatch()
	if err := batch.Index(allGroupsDocID, map[string]interface{}{
		groupsValueKey: strings.Join(setToSlice(allSet), "\x1f"),
	}); err != nil {
		return nxerrors.IOError("staging allGroups document", err)
	}
	if err := batch.Index(rootGroupsDocID, map[string]interface{}{
		groupsValueKey: strings.Join(setToSlice(rootSet), "\x1f"),
	}); err != nil {
		return nxerrors.IOError("staging rootGroups document", err)
	}
	if err := ic.index.Batch(batch); err != nil {
		return nxerrors.IOError("persisting group cache", err)
	}
	return nil
}

// setToSlice returns s's members as a sorted slice: the group documents
// are specified as holding a sorted list, and sorting here keeps the
// persisted unit-separator-joined value stable from one rebuild to the
// next regardless of map iteration order.
func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
