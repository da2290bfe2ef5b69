package providers

import (
	"fmt"
	"sync"

	"github.com/cuemby/ledger/pkg/config"
	"github.com/cuemby/ledger/pkg/kv"
	"github.com/cuemby/ledger/pkg/kv/boltstore"
	"github.com/cuemby/ledger/pkg/kv/filestore"
	"github.com/cuemby/ledger/pkg/kv/memstore"
	"github.com/cuemby/ledger/pkg/kv/registrystore"
	"github.com/cuemby/ledger/pkg/kv/sqlitestore"
	"github.com/cuemby/ledger/pkg/txnerr"
)

// Constructor builds a kv.Store from one provider's configuration entry.
type Constructor func(cfg config.ProviderConfig) (kv.Store, error)

var (
	constructorsMu sync.RWMutex
	constructors   = make(map[string]Constructor)
)

// RegisterConstructor adds a backend constructor under typeName, the
// value a ProviderConfig.TypeName must carry to select it. Panics on a
// duplicate registration: two packages claiming the same type name is
// always a bug, and failing fast at init time beats silently shadowing
// one backend with another at runtime.
func RegisterConstructor(typeName string, ctor Constructor) {
	constructorsMu.Lock()
	defer constructorsMu.Unlock()
	if _, exists := constructors[typeName]; exists {
		panic(fmt.Sprintf("providers: constructor %q already registered", typeName))
	}
	constructors[typeName] = ctor
}

func lookupConstructor(typeName string) (Constructor, bool) {
	constructorsMu.RLock()
	defer constructorsMu.RUnlock()
	ctor, ok := constructors[typeName]
	return ctor, ok
}

func init() {
	RegisterConstructor("memstore", func(cfg config.ProviderConfig) (kv.Store, error) {
		return memstore.New(memstore.Options{MaxValueBytes: cfg.MaxValueBytes}), nil
	})
	RegisterConstructor("filestore", func(cfg config.ProviderConfig) (kv.Store, error) {
		return filestore.Open(cfg.RootPath, filestore.Options{MaxValueBytes: cfg.MaxValueBytes})
	})
	RegisterConstructor("boltstore", func(cfg config.ProviderConfig) (kv.Store, error) {
		return boltstore.Open(cfg.DataSource, boltstore.Options{MaxValueBytes: cfg.MaxValueBytes})
	})
	RegisterConstructor("sqlitestore", func(cfg config.ProviderConfig) (kv.Store, error) {
		return sqlitestore.Open(cfg.DataSource, sqlitestore.Options{MaxValueBytes: cfg.MaxValueBytes})
	})
	RegisterConstructor("registrystore", func(cfg config.ProviderConfig) (kv.Store, error) {
		return registrystore.Open(registrystore.Options{
			RootPath:        cfg.RootPath,
			ApplicationName: cfg.ApplicationName,
			ServiceName:     cfg.ServiceName,
			MaxValueBytes:   cfg.MaxValueBytes,
		})
	})
}

// Registry constructs and caches one kv.Store per provider name out of a
// configuration document. Construction is lazy: a provider named in the
// document but never requested is never opened.
type Registry struct {
	mu        sync.Mutex
	doc       *config.Document
	instances map[string]kv.Store
}

// NewRegistry returns a Registry backed by doc.
func NewRegistry(doc *config.Document) *Registry {
	return &Registry{doc: doc, instances: make(map[string]kv.Store)}
}

// Store returns the named provider's kv.Store, constructing and caching
// it on first use. Subsequent calls for the same name return the same
// instance.
func (r *Registry) Store(name string) (kv.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.instances[name]; ok {
		return store, nil
	}

	cfg, ok := r.doc.Provider(name)
	if !ok {
		return nil, txnerr.Newf(txnerr.InvalidKey, "no provider named %q", name)
	}
	if !cfg.Enabled {
		return nil, txnerr.Newf(txnerr.Unavailable, "provider %q is disabled", name)
	}

	ctor, ok := lookupConstructor(cfg.TypeName)
	if !ok {
		return nil, txnerr.Newf(txnerr.InvalidEntity, "no constructor registered for provider type %q", cfg.TypeName)
	}

	store, err := ctor(*cfg)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, fmt.Sprintf("construct provider %q", name), err)
	}

	r.instances[name] = store
	return store, nil
}

// Names returns every provider name known to the underlying document,
// regardless of Enabled state.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.doc.Providers))
	for _, p := range r.doc.Providers {
		names = append(names, p.Name)
	}
	return names
}
