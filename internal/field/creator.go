package field

import (
	"context"

	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/scanner"
)

// IndexCreator declares the fields it owns, populates an ArtifactInfo
// from a scanned artifact, writes those fields into a stored document,
// and reads them back out again.
type IndexCreator interface {
	// Name identifies the creator for ordering diagnostics.
	Name() string
	// Fields lists the IndexerFields this creator contributes.
	Fields() []IndexerField
	// PopulateArtifactInfo computes this creator's contribution to info
	// from the on-disk artifact described by ac.
	PopulateArtifactInfo(ctx context.Context, ac *scanner.ArtifactContext, info *gav.ArtifactInfo) error
	// UpdateDocument writes info's fields owned by this creator into doc.
	UpdateDocument(info *gav.ArtifactInfo, doc *IndexDocument) error
	// UpdateArtifactInfo reads this creator's fields back out of doc into
	// info, returning whether any field was recognised.
	UpdateArtifactInfo(doc *IndexDocument, info *gav.ArtifactInfo) (bool, error)
}

// CreatorChain is an ordered set of IndexCreators. populate and
// updateDocument run in declared order; extraction reduces (ORs) over
// every creator.
type CreatorChain []IndexCreator

// Populate runs every creator's PopulateArtifactInfo in order, building
// up a single ArtifactInfo for the scanned artifact.
func (c CreatorChain) Populate(ctx context.Context, ac *scanner.ArtifactContext) (*gav.ArtifactInfo, error) {
	info := &gav.ArtifactInfo{
		GroupID:      ac.Gav.GroupID,
		ArtifactID:   ac.Gav.ArtifactID,
		Version:      ac.Gav.Version,
		Classifier:   ac.Gav.Classifier,
		Extension:    ac.Gav.Extension,
		RepositoryID: ac.RepositoryID,
	}
	for _, creator := range c {
		if err := creator.PopulateArtifactInfo(ctx, ac, info); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// Update runs every creator's UpdateDocument in order and returns the
// merged field bag ready to be written into the index.
func (c CreatorChain) Update(info *gav.ArtifactInfo) (*IndexDocument, error) {
	doc := NewIndexDocument()
	for _, creator := range c {
		if err := creator.UpdateDocument(info, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Extract reduces over every creator's UpdateArtifactInfo. The bool
// result is false if no creator recognised the document (i.e. it should
// be skipped by callers reconstructing hits into ArtifactInfo values).
func (c CreatorChain) Extract(doc *IndexDocument) (*gav.ArtifactInfo, bool) {
	info := &gav.ArtifactInfo{}
	recognised := false
	for _, creator := range c {
		ok, err := creator.UpdateArtifactInfo(doc, info)
		if err != nil {
			continue
		}
		if ok {
			recognised = true
		}
	}
	return info, recognised
}

// AllFields collects every IndexerField declared across the chain.
func (c CreatorChain) AllFields() []IndexerField {
	var fields []IndexerField
	for _, creator := range c {
		fields = append(fields, creator.Fields()...)
	}
	return fields
}
