package field

import (
	"archive/zip"
	"context"
	"strings"

	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/scanner"
)

// JarFileContentsIndexCreator enumerates a jar's class entries and
// exposes them as both a tokenized and a keyword field.
type JarFileContentsIndexCreator struct{}

// NewJarFileContentsIndexCreator constructs the mandatory jar-contents
// creator.
func NewJarFileContentsIndexCreator() *JarFileContentsIndexCreator {
	return &JarFileContentsIndexCreator{}
}

func (c *JarFileContentsIndexCreator) Name() string { return "jarContent" }

func (c *JarFileContentsIndexCreator) Fields() []IndexerField {
	return []IndexerField{
		{Ontology: "classnames", StorageKey: StorageKeyClassNames, Stored: false, Indexed: true},
		{Ontology: "classnames", StorageKey: StorageKeyClassNmKw, Stored: true, Indexed: true, Keyword: true},
	}
}

func (c *JarFileContentsIndexCreator) PopulateArtifactInfo(_ context.Context, ac *scanner.ArtifactContext, info *gav.ArtifactInfo) error {
	if !isJarLike(ac.Gav.Extension) {
		return nil
	}

	r, err := zip.OpenReader(ac.Path)
	if err != nil {
		// Not every "jar-extension" file is a valid zip (e.g. corrupt or
		// partial uploads); skip class enumeration rather than failing
		// the whole scan.
		return nil
	}
	defer func() { _ = r.Close() }()

	var classNames []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(f.Name, ".class") || strings.Contains(f.Name, "$") {
			continue
		}
		name := strings.TrimSuffix(f.Name, ".class")
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		classNames = append(classNames, name)
	}
	info.ClassNames = classNames
	return nil
}

func (c *JarFileContentsIndexCreator) UpdateDocument(info *gav.ArtifactInfo, doc *IndexDocument) error {
	if len(info.ClassNames) == 0 {
		return nil
	}
	doc.SetMulti(StorageKeyClassNames, info.ClassNames)
	doc.SetMulti(StorageKeyClassNmKw, info.ClassNames)
	return nil
}

func (c *JarFileContentsIndexCreator) UpdateArtifactInfo(doc *IndexDocument, info *gav.ArtifactInfo) (bool, error) {
	names := doc.GetMulti(StorageKeyClassNmKw)
	if len(names) == 0 {
		return false, nil
	}
	info.ClassNames = names
	return true, nil
}

func isJarLike(ext string) bool {
	switch ext {
	case "jar", "war", "ear", "rar", "aar":
		return true
	default:
		return false
	}
}
