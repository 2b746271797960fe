package idxcontext

import (
	"fmt"
	"strconv"
	"strings"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
)

const descriptorDocID = "@descriptor"

// validateOrWriteDescriptor implements the §4.C open-time descriptor
// check: on an existing, non-empty index the descriptor must match this
// context's repository ID unless reclaim is set; a fresh or reclaimed
// context writes a brand new descriptor.
func (ic *IndexingContext) validateOrWriteDescriptor(existed bool, reclaim bool) error {
	count, err := ic.index.DocCount()
	if err != nil {
		return nxerrors.IOError("counting existing documents", err)
	}

	if existed && count > 0 {
		fields, ok, err := getStoredDoc(ic.index, descriptorDocID, []string{field.StorageKeyIDXInfo})
		if err != nil {
			return err
		}
		if !ok {
			if !reclaim {
				return nxerrors.UnsupportedExistingIndexError(
					"index directory has documents but no descriptor")
			}
			return ic.writeDescriptor()
		}

		idxinfo, _ := fields[field.StorageKeyIDXInfo].(string)
		version, repoID, err := parseIDXInfo(idxinfo)
		if err != nil {
			if !reclaim {
				return nxerrors.UnsupportedExistingIndexError(fmt.Sprintf("malformed descriptor: %v", err))
			}
			return ic.writeDescriptor()
		}
		if version > maxSupportedDescriptorVersion {
			return nxerrors.New(nxerrors.ErrCodeUnsupportedExistingIndex,
				fmt.Sprintf("index descriptor version %d is newer than supported version %d", version, maxSupportedDescriptorVersion), nil)
		}
		if repoID != ic.repositoryID && !reclaim {
			return nxerrors.UnsupportedExistingIndexError(
				fmt.Sprintf("index belongs to repository %q, not %q", repoID, ic.repositoryID))
		}
		return nil
	}

	return ic.writeDescriptor()
}

func (ic *IndexingContext) writeDescriptor() error {
	idxinfo := fmt.Sprintf("%d|%s", descriptorVersion, ic.repositoryID)
	doc := map[string]interface{}{
		field.StorageKeyDescriptor: field.DescriptorMarker,
		field.StorageKeyIDXInfo:    idxinfo,
	}
	if err := ic.index.Index(descriptorDocID, doc); err != nil {
		return nxerrors.IOError("writing index descriptor", err)
	}
	return nil
}

func parseIDXInfo(s string) (version int, repositoryID string, err error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("expected <version>|<repositoryId>, got %q", s)
	}
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid descriptor version %q: %w", parts[0], err)
	}
	return v, parts[1], nil
}
