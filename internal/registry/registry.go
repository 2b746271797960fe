// Package registry wires together the constructed components a running
// indexer needs — the creator chain, query constructor, search engine,
// and packer — as a single small struct passed by reference. There is no
// dependency-injection container and no global state: this is the
// reimplementation's answer to the source's container-resolved
// components (SPEC_FULL.md §2 REDESIGN FLAGS).
package registry

import (
	"sync"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/query"
	"github.com/nxindex/core/internal/search"
)

// Registry holds every long-lived, stateless-or-cheap component plus the
// set of open contexts a CLI or service needs to search/pack across.
type Registry struct {
	Creators field.CreatorChain
	Queries  *query.Constructor
	Search   *search.Engine
	Pack     *packer.Packer
	GavCalc  gav.GavCalculator

	mu       sync.RWMutex
	contexts map[string]*idxcontext.IndexingContext
}

// Options configures a new Registry.
type Options struct {
	Creators   field.CreatorChain
	GavCalc    gav.GavCalculator
	PackerOpts packer.Options
}

// New constructs a Registry: the query constructor's schema is derived
// from Creators, and the packer/search components are built once and
// reused across every subsequent operation.
func New(opts Options) (*Registry, error) {
	if opts.Creators == nil {
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath, "registry requires at least one IndexCreator", nil)
	}
	qc, err := query.NewConstructor(opts.Creators.AllFields())
	if err != nil {
		return nil, err
	}
	return &Registry{
		Creators: opts.Creators,
		Queries:  qc,
		Search:   search.NewEngine(),
		Pack:     packer.NewPacker(opts.PackerOpts),
		GavCalc:  opts.GavCalc,
		contexts: make(map[string]*idxcontext.IndexingContext),
	}, nil
}

// Register adds an opened context under its own ID, replacing any
// previous context registered under the same ID.
func (r *Registry) Register(ic *idxcontext.IndexingContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[ic.ID()] = ic
}

// Unregister removes a context by ID without closing it; callers remain
// responsible for calling Close on the context themselves.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, id)
}

// Context returns the registered context for id, if any.
func (r *Registry) Context(id string) (*idxcontext.IndexingContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ic, ok := r.contexts[id]
	return ic, ok
}

// Contexts returns every registered context, in no particular order.
func (r *Registry) Contexts() []*idxcontext.IndexingContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*idxcontext.IndexingContext, 0, len(r.contexts))
	for _, ic := range r.contexts {
		out = append(out, ic)
	}
	return out
}

// CloseAll closes every registered context, collecting the first error
// encountered while still attempting to close the rest.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for id, ic := range r.contexts {
		if err := ic.Close(false); err != nil && first == nil {
			first = err
		}
		delete(r.contexts, id)
	}
	return first
}
