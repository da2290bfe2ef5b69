package providers_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ledger/pkg/config"
	"github.com/cuemby/ledger/pkg/providers"
	"github.com/cuemby/ledger/pkg/txnerr"
)

func newDoc(entries ...config.ProviderConfig) *config.Document {
	return &config.Document{Providers: entries}
}

func TestRegistry_BuildsMemStore(t *testing.T) {
	doc := newDoc(config.ProviderConfig{Name: "cache", TypeName: "memstore", Enabled: true})
	reg := providers.NewRegistry(doc)

	store, err := reg.Store("cache")
	require.NoError(t, err)
	require.NotNil(t, store)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRegistry_CachesSingletonPerName(t *testing.T) {
	doc := newDoc(config.ProviderConfig{Name: "cache", TypeName: "memstore", Enabled: true})
	reg := providers.NewRegistry(doc)

	first, err := reg.Store("cache")
	require.NoError(t, err)
	second, err := reg.Store("cache")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegistry_BuildsFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.json")
	doc := newDoc(config.ProviderConfig{Name: "primary", TypeName: "filestore", Enabled: true, RootPath: path})
	reg := providers.NewRegistry(doc)

	store, err := reg.Store("primary")
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestRegistry_RejectsUnknownProviderName(t *testing.T) {
	reg := providers.NewRegistry(newDoc())

	_, err := reg.Store("missing")
	require.Error(t, err)
	assert.True(t, txnerr.Is(err, txnerr.InvalidKey))
}

func TestRegistry_RejectsDisabledProvider(t *testing.T) {
	doc := newDoc(config.ProviderConfig{Name: "cache", TypeName: "memstore", Enabled: false})
	reg := providers.NewRegistry(doc)

	_, err := reg.Store("cache")
	require.Error(t, err)
	assert.True(t, txnerr.Is(err, txnerr.Unavailable))
}

func TestRegistry_RejectsUnknownTypeName(t *testing.T) {
	doc := newDoc(config.ProviderConfig{Name: "cache", TypeName: "does-not-exist", Enabled: true})
	reg := providers.NewRegistry(doc)

	_, err := reg.Store("cache")
	require.Error(t, err)
	assert.True(t, txnerr.Is(err, txnerr.InvalidEntity))
}

func TestRegistry_NamesListsEveryProvider(t *testing.T) {
	doc := newDoc(
		config.ProviderConfig{Name: "primary", TypeName: "filestore", Enabled: true},
		config.ProviderConfig{Name: "cache", TypeName: "memstore", Enabled: false},
	)
	reg := providers.NewRegistry(doc)

	assert.ElementsMatch(t, []string{"primary", "cache"}, reg.Names())
}
