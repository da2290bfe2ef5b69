// Package memstore is an in-memory KV backend: the lightweight "other
// compliant backend" spec.md §2 requires every transactional resource
// adapter to interoperate with identically to the file-backed reference
// store. It is used for unit tests and for data that does not need to
// survive a process restart.
package memstore

import (
	"context"
	"sync"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"
)

// MemStore keeps a live view and a "committed" baseline snapshot that
// Rollback restores from — the in-memory analogue of filestore's disk
// file. Save/SaveMany/Delete/Clear write through to both, so that any
// state established by a direct call to the store (the documented way a
// precondition is set up before a session ever enlists it) is part of
// the baseline and survives a later Rollback, exactly as a file-backed
// store's on-disk state would survive reloading after a rollback.
type MemStore struct {
	mu            sync.Mutex
	live          map[string]*entity.Entity
	committed     map[string]*entity.Entity
	maxValueBytes int
}

// Options configures a MemStore.
type Options struct {
	// MaxValueBytes bounds the serialized Payload of any saved entity.
	// Zero means no limit.
	MaxValueBytes int
}

// New returns an empty MemStore.
func New(opts Options) *MemStore {
	return &MemStore{
		live:          make(map[string]*entity.Entity),
		committed:     make(map[string]*entity.Entity),
		maxValueBytes: opts.MaxValueBytes,
	}
}

func validateKey(key string) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	return nil
}

func (s *MemStore) validateValue(e *entity.Entity) error {
	if e == nil {
		return txnerr.New(txnerr.InvalidEntity, "entity must not be nil")
	}
	if s.maxValueBytes > 0 && len(e.Payload) > s.maxValueBytes {
		return txnerr.Newf(txnerr.ValueTooLarge, "value %d bytes exceeds max %d", len(e.Payload), s.maxValueBytes)
	}
	return nil
}

func (s *MemStore) Get(_ context.Context, key string) (*entity.Entity, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live[key]
	return e.Clone(), ok, nil
}

func (s *MemStore) GetMany(_ context.Context, keys []string) (map[string]*entity.Entity, error) {
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

func (s *MemStore) GetAll(_ context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error) {
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

func (s *MemStore) Save(_ context.Context, key string, e *entity.Entity) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.validateValue(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[key] = e.Clone()
	s.committed[key] = e.Clone()
	return nil
}

func (s *MemStore) SaveMany(_ context.Context, entries map[string]*entity.Entity) error {
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
		s.committed[key] = e.Clone()
	}
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, key)
	delete(s.committed, key)
	return nil
}

func (s *MemStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[key]
	return ok, nil
}

func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live), nil
}

func (s *MemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]*entity.Entity)
	s.committed = make(map[string]*entity.Entity)
	return nil
}

// Prepare implements kv.Resource.
func (s *MemStore) Prepare(context.Context) (bool, error) { return true, nil }

// Commit implements kv.Resource: the live view becomes the new committed
// baseline. A no-op in practice since every write already advanced
// committed in lockstep; kept so a resource adapter driving Commit
// through the kv.Resource interface sees the same behavior every other
// backend provides.
func (s *MemStore) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = make(map[string]*entity.Entity, len(s.live))
	for k, e := range s.live {
		s.committed[k] = e.Clone()
	}
	return nil
}

// Rollback implements kv.Resource: the live view reverts to the
// committed baseline, which always reflects the backend's state as of
// the last write made outside an open transaction — i.e. its view
// immediately before whatever session is rolling back ever enlisted it.
func (s *MemStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]*entity.Entity, len(s.committed))
	for k, e := range s.committed {
		s.live[k] = e.Clone()
	}
	return nil
}

func (s *MemStore) CreateSavepoint(context.Context, string) error      { return nil }
func (s *MemStore) RollbackToSavepoint(context.Context, string) error  { return nil }
func (s *MemStore) DiscardSavepoint(context.Context, string) error     { return nil }
