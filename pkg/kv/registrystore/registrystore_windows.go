//go:build windows

package registrystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"
	"golang.org/x/sys/windows/registry"
)

// RegistryStore stores entities as binary values under
// HKEY_CURRENT_USER\<RootPath>\<ApplicationName>\<ServiceName>. Each
// value name is the entity key; the value data is the JSON-encoded
// entity. There is no native transaction support in the Windows
// registry API, so Prepare/Commit/Rollback mirror filestore: a live view
// is buffered and only written through to the registry on Commit.
type RegistryStore struct {
	mu            sync.Mutex
	keyPath       string
	live          map[string]*entity.Entity
	maxValueBytes int
}

// Open opens (creating if absent) the registry key described by opts.
func Open(opts Options) (*RegistryStore, error) {
	keyPath := fmt.Sprintf(`%s\%s\%s`, opts.RootPath, opts.ApplicationName, opts.ServiceName)
	k, _, err := registry.CreateKey(registry.CURRENT_USER, keyPath, registry.ALL_ACCESS)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, "create registry key", err)
	}
	defer k.Close()

	s := &RegistryStore{keyPath: keyPath, live: make(map[string]*entity.Entity), maxValueBytes: opts.MaxValueBytes}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RegistryStore) load() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, s.keyPath, registry.READ)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "open registry key", err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "list registry values", err)
	}
	loaded := make(map[string]*entity.Entity, len(names))
	for _, name := range names {
		data, _, err := k.GetBinaryValue(name)
		if err != nil {
			continue
		}
		var e entity.Entity
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		loaded[name] = &e
	}
	s.live = loaded
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	return nil
}

func (s *RegistryStore) validateValue(e *entity.Entity) error {
	if e == nil {
		return txnerr.New(txnerr.InvalidEntity, "entity must not be nil")
	}
	if s.maxValueBytes > 0 && len(e.Payload) > s.maxValueBytes {
		return txnerr.Newf(txnerr.ValueTooLarge, "value %d bytes exceeds max %d", len(e.Payload), s.maxValueBytes)
	}
	return nil
}

func (s *RegistryStore) Get(_ context.Context, key string) (*entity.Entity, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live[key]
	return e.Clone(), ok, nil
}

func (s *RegistryStore) GetMany(_ context.Context, keys []string) (map[string]*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*entity.Entity, len(keys))
	for _, k := range keys {
		if e, ok := s.live[k]; ok {
			out[k] = e.Clone()
		}
	}
	return out, nil
}

func (s *RegistryStore) GetAll(_ context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*entity.Entity)
	for k, e := range s.live {
		if predicate == nil || predicate(k, e) {
			out[k] = e.Clone()
		}
	}
	return out, nil
}

func (s *RegistryStore) Save(_ context.Context, key string, e *entity.Entity) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.validateValue(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[key] = e.Clone()
	return nil
}

func (s *RegistryStore) SaveMany(_ context.Context, entries map[string]*entity.Entity) error {
	for key, e := range entries {
		if err := validateKey(key); err != nil {
			return err
		}
		if err := s.validateValue(e); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range entries {
		s.live[key] = e.Clone()
	}
	return nil
}

func (s *RegistryStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, key)
	return nil
}

func (s *RegistryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[key]
	return ok, nil
}

func (s *RegistryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live), nil
}

func (s *RegistryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]*entity.Entity)
	return nil
}

func (s *RegistryStore) Prepare(context.Context) (bool, error) { return true, nil }

// Commit implements kv.Resource: write every live entity through to the
// registry key as a binary value.
func (s *RegistryStore) Commit(context.Context) error {
	s.mu.Lock()
	snapshot := make(map[string]*entity.Entity, len(s.live))
	for k, e := range s.live {
		snapshot[k] = e.Clone()
	}
	keyPath := s.keyPath
	s.mu.Unlock()

	k, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.ALL_ACCESS)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "open registry key for write", err)
	}
	defer k.Close()

	for key, e := range snapshot {
		data, err := json.Marshal(e)
		if err != nil {
			return txnerr.Wrap(txnerr.Serialization, "encode registry value", err)
		}
		if err := k.SetBinaryValue(key, data); err != nil {
			return txnerr.Wrap(txnerr.Unavailable, "write registry value", err)
		}
	}
	return nil
}

// Rollback implements kv.Resource: discard the live view and reload from
// the registry.
func (s *RegistryStore) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *RegistryStore) CreateSavepoint(context.Context, string) error     { return nil }
func (s *RegistryStore) RollbackToSavepoint(context.Context, string) error { return nil }
func (s *RegistryStore) DiscardSavepoint(context.Context, string) error    { return nil }
