// Package gav implements the canonical Maven artifact coordinate model:
// the Gav coordinate tuple, the ArtifactInfo record, and the bidirectional
// mapping between a Maven2 repository layout path and a Gav.
package gav

import (
	"strings"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// unitSeparator is the field separator used to build UINFO keys, matching
// the wire format documented for published index chunks.
const unitSeparator = ""

// Gav is a fully parsed Maven2 coordinate, including the snapshot
// decomposition when the version is a timestamped snapshot.
type Gav struct {
	GroupID     string
	ArtifactID  string
	Version     string
	BaseVersion string
	Classifier  string
	Extension   string

	Snapshot          bool
	SnapshotTimestamp string
	BuildNumber       int
}

// ArtifactInfo is the canonical per-artifact record stored in and
// reconstituted from the index.
type ArtifactInfo struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Packaging  string
	Extension  string

	RepositoryID string
	ContextID    string
	FName        string
	Size         int64
	LastModified int64 // unix millis

	Name        string
	Description string
	SHA1        string
	MD5         string

	ClassNames []string

	// deleted, when non-empty, holds the UINFO of a removed artifact. An
	// ArtifactInfo is either live (deleted == "") or a tombstone.
	deleted string
}

// NewTombstone builds an ArtifactInfo representing a deletion. uinfo must
// be a well-formed UINFO string of the artifact being removed.
func NewTombstone(uinfo string) *ArtifactInfo {
	return &ArtifactInfo{deleted: uinfo}
}

// Deleted reports whether this record is a tombstone, and if so the UINFO
// of the artifact it removes.
func (a *ArtifactInfo) Deleted() (string, bool) {
	if a.deleted == "" {
		return "", false
	}
	return a.deleted, true
}

// UINFO returns the unit-separator-joined sort/dedup key:
// groupId|artifactId|version|classifier|extension.
func (a *ArtifactInfo) UINFO() string {
	if uinfo, ok := a.Deleted(); ok {
		return uinfo
	}
	return strings.Join([]string{
		a.GroupID, a.ArtifactID, a.Version, a.Classifier, a.Extension,
	}, unitSeparator)
}

// Validate enforces the UINFO-xor-DELETED invariant demanded of every
// ArtifactInfo record.
func (a *ArtifactInfo) Validate() error {
	_, tomb := a.Deleted()
	live := a.GroupID != "" && a.ArtifactID != "" && a.Version != ""
	switch {
	case tomb && live:
		return nxerrors.New(nxerrors.ErrCodeInvalidGav,
			"artifact record carries both UINFO and DELETED", nil)
	case !tomb && !live:
		return nxerrors.New(nxerrors.ErrCodeInvalidGav,
			"artifact record has neither a coordinate nor a tombstone", nil)
	}
	return nil
}
