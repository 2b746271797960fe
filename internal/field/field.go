// Package field declares the indexable field schema and the IndexCreator
// pipeline that turns a scanned artifact into a stored document, and
// reconstitutes a stored document back into an ArtifactInfo.
package field

// IndexerField is one schema element: a logical ontology key backed by a
// physical storage key, plus the flags that control how the field is
// mapped in the underlying inverted index.
type IndexerField struct {
	// Ontology is the symbolic field name (e.g. "groupId").
	Ontology string
	// StorageKey is the on-disk / on-wire field name (e.g. "g").
	StorageKey string
	// Stored indicates the raw value is retrievable from a hit.
	Stored bool
	// Indexed indicates the field participates in search.
	Indexed bool
	// Keyword indicates the field is untokenized (exact-match / sortable).
	Keyword bool
}

// IndexDocument is a field bag: the merged set of values contributed by
// every IndexCreator for one artifact, keyed by storage key. Multi-valued
// fields (e.g. class names) use []string; scalar fields use string.
type IndexDocument struct {
	Values map[string]interface{}
}

// NewIndexDocument returns an empty field bag.
func NewIndexDocument() *IndexDocument {
	return &IndexDocument{Values: make(map[string]interface{})}
}

// Set stores a scalar value under storageKey.
func (d *IndexDocument) Set(storageKey, value string) {
	d.Values[storageKey] = value
}

// SetMulti stores a multi-valued field under storageKey.
func (d *IndexDocument) SetMulti(storageKey string, values []string) {
	d.Values[storageKey] = values
}

// GetString returns a scalar field's value, or "" if absent or not a
// scalar.
func (d *IndexDocument) GetString(storageKey string) string {
	v, ok := d.Values[storageKey]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetMulti returns a multi-valued field's values, or nil if absent.
func (d *IndexDocument) GetMulti(storageKey string) []string {
	v, ok := d.Values[storageKey]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case string:
		return []string{t}
	default:
		return nil
	}
}

// Has reports whether storageKey has any contributed value.
func (d *IndexDocument) Has(storageKey string) bool {
	_, ok := d.Values[storageKey]
	return ok
}

// Reserved storage keys shared across creators and the descriptor /
// group-cache documents held directly by IndexingContext.
const (
	StorageKeyDescriptor = "DESCRIPTOR"
	StorageKeyIDXInfo    = "IDXINFO"
	StorageKeyUinfo      = "UINFO"
	StorageKeyDeleted    = "DELETED"
	StorageKeyGroupID    = "g"
	StorageKeyGroupIDKw  = "g_kw"
	StorageKeyArtifactID = "a"
	StorageKeyArtifactKw = "a_kw"
	StorageKeyVersion    = "v"
	StorageKeyVersionKw  = "v_kw"
	StorageKeyClassifier = "c"
	StorageKeyPackaging  = "p"
	StorageKeyExtension  = "e"
	StorageKeyName       = "name"
	StorageKeyDescr      = "description"
	StorageKeySHA1       = "1"
	StorageKeyMD5        = "md5"
	StorageKeySize       = "size"
	StorageKeyLastMod    = "m"
	StorageKeyClassNames = "classnames"
	StorageKeyClassNmKw  = "classnames_kw"

	DescriptorMarker = "NexusIndex"
)
