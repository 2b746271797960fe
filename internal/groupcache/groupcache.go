// Package groupcache exposes the allGroups/rootGroups key-value cache
// persisted alongside an index. It mirrors the teacher's GetState/SetState
// key-value convention: two reserved keys, two values, one rebuild.
package groupcache

import "github.com/nxindex/core/internal/idxcontext"

// AllGroups reads the cached set of every groupId seen by ic. O(1): a
// single stored document is loaded and split.
func AllGroups(ic *idxcontext.IndexingContext) ([]string, error) {
	return ic.AllGroups()
}

// RootGroups reads the cached set of first-path-segment groupIds seen by
// ic.
func RootGroups(ic *idxcontext.IndexingContext) ([]string, error) {
	return ic.RootGroups()
}

// Rebuild forces a full rescan of ic's live documents and rewrites both
// cache entries atomically. O(live documents).
func Rebuild(ic *idxcontext.IndexingContext) error {
	return ic.RebuildGroups()
}
