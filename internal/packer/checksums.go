package packer

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// writeChecksumSiblings computes SHA1 and MD5 digests of path and writes
// them as path+".sha1"/path+".md5", each containing the lowercase hex
// digest with no trailing newline (the Maven checksum convention).
// crypto/sha1 and crypto/md5 are the standard library: no third-party
// checksum library appears anywhere in the retrieval corpus, matching
// internal/field's minimal.go use of the same pair for artifact
// checksums.
func writeChecksumSiblings(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return nxerrors.IOError("opening file to checksum", err)
	}
	defer func() { _ = f.Close() }()

	sha1h := sha1.New()
	md5h := md5.New()
	if _, err := io.Copy(io.MultiWriter(sha1h, md5h), f); err != nil {
		return nxerrors.IOError("computing checksums", err)
	}

	if err := os.WriteFile(path+".sha1", []byte(hex.EncodeToString(sha1h.Sum(nil))), 0o644); err != nil {
		return nxerrors.IOError("writing sha1 sibling", err)
	}
	if err := os.WriteFile(path+".md5", []byte(hex.EncodeToString(md5h.Sum(nil))), 0o644); err != nil {
		return nxerrors.IOError("writing md5 sibling", err)
	}
	return nil
}
