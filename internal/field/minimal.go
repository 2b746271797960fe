package field

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strconv"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/scanner"
)

// MinimalArtifactInfoIndexCreator computes coordinate, size, timestamp,
// checksum, and packaging fields, and writes both keyword and tokenized
// variants of the coordinate fields.
type MinimalArtifactInfoIndexCreator struct{}

// NewMinimalArtifactInfoIndexCreator constructs the mandatory minimal
// creator.
func NewMinimalArtifactInfoIndexCreator() *MinimalArtifactInfoIndexCreator {
	return &MinimalArtifactInfoIndexCreator{}
}

func (c *MinimalArtifactInfoIndexCreator) Name() string { return "min" }

func (c *MinimalArtifactInfoIndexCreator) Fields() []IndexerField {
	return []IndexerField{
		{Ontology: "uinfo", StorageKey: StorageKeyUinfo, Stored: true, Indexed: true, Keyword: true},
		{Ontology: "groupId", StorageKey: StorageKeyGroupID, Stored: true, Indexed: true},
		{Ontology: "groupId", StorageKey: StorageKeyGroupIDKw, Stored: false, Indexed: true, Keyword: true},
		{Ontology: "artifactId", StorageKey: StorageKeyArtifactID, Stored: true, Indexed: true},
		{Ontology: "artifactId", StorageKey: StorageKeyArtifactKw, Stored: false, Indexed: true, Keyword: true},
		{Ontology: "version", StorageKey: StorageKeyVersion, Stored: true, Indexed: true},
		{Ontology: "version", StorageKey: StorageKeyVersionKw, Stored: false, Indexed: true, Keyword: true},
		{Ontology: "classifier", StorageKey: StorageKeyClassifier, Stored: true, Indexed: true, Keyword: true},
		{Ontology: "packaging", StorageKey: StorageKeyPackaging, Stored: true, Indexed: true, Keyword: true},
		{Ontology: "extension", StorageKey: StorageKeyExtension, Stored: true, Indexed: true, Keyword: true},
		{Ontology: "name", StorageKey: StorageKeyName, Stored: true, Indexed: true},
		{Ontology: "sha1", StorageKey: StorageKeySHA1, Stored: true, Indexed: true, Keyword: true},
		{Ontology: "md5", StorageKey: StorageKeyMD5, Stored: true, Indexed: false, Keyword: true},
		{Ontology: "size", StorageKey: StorageKeySize, Stored: true, Indexed: false},
		{Ontology: "lastModified", StorageKey: StorageKeyLastMod, Stored: true, Indexed: false},
	}
}

func (c *MinimalArtifactInfoIndexCreator) PopulateArtifactInfo(_ context.Context, ac *scanner.ArtifactContext, info *gav.ArtifactInfo) error {
	info.FName = ac.Info.Name()
	info.Size = ac.Info.Size()
	info.LastModified = ac.Info.ModTime().UnixMilli()
	info.Packaging = ac.Gav.Extension

	sha1sum, md5sum, err := checksums(ac.Path)
	if err != nil {
		return nxerrors.IOError("computing artifact checksums", err)
	}
	info.SHA1 = sha1sum
	info.MD5 = md5sum
	return nil
}

func (c *MinimalArtifactInfoIndexCreator) UpdateDocument(info *gav.ArtifactInfo, doc *IndexDocument) error {
	doc.Set(StorageKeyUinfo, info.UINFO())
	doc.Set(StorageKeyGroupID, info.GroupID)
	doc.Set(StorageKeyGroupIDKw, info.GroupID)
	doc.Set(StorageKeyArtifactID, info.ArtifactID)
	doc.Set(StorageKeyArtifactKw, info.ArtifactID)
	doc.Set(StorageKeyVersion, info.Version)
	doc.Set(StorageKeyVersionKw, info.Version)
	doc.Set(StorageKeyClassifier, info.Classifier)
	doc.Set(StorageKeyPackaging, info.Packaging)
	doc.Set(StorageKeyExtension, info.Extension)
	doc.Set(StorageKeyName, info.Name)
	doc.Set(StorageKeySHA1, info.SHA1)
	doc.Set(StorageKeyMD5, info.MD5)
	doc.Set(StorageKeySize, strconv.FormatInt(info.Size, 10))
	doc.Set(StorageKeyLastMod, strconv.FormatInt(info.LastModified, 10))
	return nil
}

func (c *MinimalArtifactInfoIndexCreator) UpdateArtifactInfo(doc *IndexDocument, info *gav.ArtifactInfo) (bool, error) {
	if !doc.Has(StorageKeyUinfo) {
		return false, nil
	}
	info.GroupID = doc.GetString(StorageKeyGroupID)
	info.ArtifactID = doc.GetString(StorageKeyArtifactID)
	info.Version = doc.GetString(StorageKeyVersion)
	info.Classifier = doc.GetString(StorageKeyClassifier)
	info.Packaging = doc.GetString(StorageKeyPackaging)
	info.Extension = doc.GetString(StorageKeyExtension)
	info.Name = doc.GetString(StorageKeyName)
	info.SHA1 = doc.GetString(StorageKeySHA1)
	info.MD5 = doc.GetString(StorageKeyMD5)
	if s := doc.GetString(StorageKeySize); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			info.Size = n
		}
	}
	if s := doc.GetString(StorageKeyLastMod); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			info.LastModified = n
		}
	}
	return true, nil
}

func checksums(path string) (sha1hex, md5hex string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = f.Close() }()

	sh := sha1.New()
	mh := md5.New()
	if _, err := io.Copy(io.MultiWriter(sh, mh), f); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(sh.Sum(nil)), hex.EncodeToString(mh.Sum(nil)), nil
}
