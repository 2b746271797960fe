package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nxindex/core/internal/field"
	"github.com/nxindex/core/internal/gav"
	"github.com/nxindex/core/internal/idxcontext"
	"github.com/nxindex/core/internal/packer"
	"github.com/nxindex/core/internal/registry"
)

func TestNew_BuildsQueryConstructorFromCreators(t *testing.T) {
	r, err := registry.New(registry.Options{
		Creators: field.CreatorChain{
			field.NewMinimalArtifactInfoIndexCreator(),
			field.NewJarFileContentsIndexCreator(),
		},
		GavCalc:    gav.NewM2GavCalculator(),
		PackerOpts: packer.Options{CreateIncrementalChunks: true, MaxIndexChunks: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, r.Queries)
	require.NotNil(t, r.Search)
	require.NotNil(t, r.Pack)
}

func TestRegisterAndCloseAll(t *testing.T) {
	r, err := registry.New(registry.Options{
		Creators: field.CreatorChain{field.NewMinimalArtifactInfoIndexCreator()},
		GavCalc:  gav.NewM2GavCalculator(),
	})
	require.NoError(t, err)

	ic, err := idxcontext.Open(idxcontext.Options{
		ID: "central", RepositoryID: "central", MemOnly: true,
		Creators: field.CreatorChain{field.NewMinimalArtifactInfoIndexCreator()},
	})
	require.NoError(t, err)
	r.Register(ic)

	got, ok := r.Context("central")
	require.True(t, ok)
	require.Same(t, ic, got)
	require.Len(t, r.Contexts(), 1)

	require.NoError(t, r.CloseAll())
	require.Empty(t, r.Contexts())
}
