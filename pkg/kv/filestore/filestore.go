package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/log"
	"github.com/cuemby/ledger/pkg/metrics"
	"github.com/cuemby/ledger/pkg/txnerr"
)

// MaxKeyBytes bounds keys per spec.md §4.3 ("Key constraints").
const MaxKeyBytes = 4 * 1024

// DefaultMaxValueBytes is used when Options.MaxValueBytes is zero.
const DefaultMaxValueBytes = 64 * 1024

// Options configures a FileStore.
type Options struct {
	// MaxValueBytes bounds the serialized Payload of any saved entity.
	// Zero means DefaultMaxValueBytes.
	MaxValueBytes int
}

// FileStore is the reference KV backend: the entire mapping lives in
// memory and is flushed to a single JSON file on Commit. It is not
// suitable for data exceeding process memory; that is intentional
// (spec.md §4.3, "Cache policy").
type FileStore struct {
	mu            sync.Mutex
	path          string
	cache         map[string]*entity.Entity
	maxValueBytes int
	logger        log.Logger
}

// Open loads (or creates) the JSON file at path and returns a ready
// FileStore. A missing file is initialized empty and created; a
// malformed file is logged and treated as empty (spec.md §4.3, "On
// load").
func Open(path string, opts Options) (*FileStore, error) {
	maxValueBytes := opts.MaxValueBytes
	if maxValueBytes <= 0 {
		maxValueBytes = DefaultMaxValueBytes
	}
	fs := &FileStore{
		path:          path,
		cache:         make(map[string]*entity.Entity),
		maxValueBytes: maxValueBytes,
		logger:        log.WithComponent("filestore"),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cache = make(map[string]*entity.Entity)
			return s.writeFile(s.cache)
		}
		return txnerr.Wrap(txnerr.Unavailable, "read file store", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.cache = make(map[string]*entity.Entity)
		return nil
	}
	var loaded map[string]*entity.Entity
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("malformed file store, initializing empty")
		s.cache = make(map[string]*entity.Entity)
		return nil
	}
	s.cache = loaded
	return nil
}

// writeFile performs the atomic-replace protocol from spec.md §4.3,
// "Persistence protocol": write to <path>.tmp, fsync it, rename over
// <path>, then fsync the containing directory.
func (s *FileStore) writeFile(snapshot map[string]*entity.Entity) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return txnerr.Wrap(txnerr.Serialization, "marshal file store", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "create file store directory", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "open temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return txnerr.Wrap(txnerr.Unavailable, "write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return txnerr.Wrap(txnerr.Unavailable, "fsync temp file", err)
	}
	if err := f.Close(); err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "close temp file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "atomic rename", err)
	}
	if dirF, err := os.Open(dir); err == nil {
		_ = dirF.Sync()
		_ = dirF.Close()
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	if len(key) > MaxKeyBytes {
		return txnerr.Newf(txnerr.InvalidKey, "key exceeds %d bytes", MaxKeyBytes)
	}
	return nil
}

func (s *FileStore) validateValue(e *entity.Entity) error {
	if e == nil {
		return txnerr.New(txnerr.InvalidEntity, "entity must not be nil")
	}
	if len(e.Payload) > s.maxValueBytes {
		return txnerr.Newf(txnerr.ValueTooLarge, "value %d bytes exceeds max %d", len(e.Payload), s.maxValueBytes)
	}
	return nil
}

// Get implements kv.Store.
func (s *FileStore) Get(_ context.Context, key string) (*entity.Entity, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	return e.Clone(), ok, nil
}

// GetMany implements kv.Store.
func (s *FileStore) GetMany(_ context.Context, keys []string) (map[string]*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*entity.Entity, len(keys))
	for _, k := range keys {
		if e, ok := s.cache[k]; ok {
			out[k] = e.Clone()
		}
	}
	return out, nil
}

// GetAll implements kv.Store.
func (s *FileStore) GetAll(_ context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*entity.Entity)
	for k, e := range s.cache {
		if predicate == nil || predicate(k, e) {
			out[k] = e.Clone()
		}
	}
	return out, nil
}

// Save implements kv.Store. It mutates the in-memory cache only; the
// file is untouched until Commit.
func (s *FileStore) Save(_ context.Context, key string, e *entity.Entity) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.validateValue(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = e.Clone()
	return nil
}

// SaveMany implements kv.Store.
func (s *FileStore) SaveMany(_ context.Context, entries map[string]*entity.Entity) error {
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
		s.cache[key] = e.Clone()
	}
	return nil
}

// Delete implements kv.Store.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	return nil
}

// Exists implements kv.Store.
func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[key]
	return ok, nil
}

// Count implements kv.Store.
func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache), nil
}

// Clear implements kv.Store.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*entity.Entity)
	return nil
}

// Prepare implements kv.Resource. The file-backed store has nothing
// extra to validate beyond what the resource adapter already checked; it
// is accessible by virtue of having loaded successfully (spec.md §4.3).
func (s *FileStore) Prepare(context.Context) (bool, error) {
	return true, nil
}

// Commit implements kv.Resource: flush the current cache to disk.
func (s *FileStore) Commit(_ context.Context) error {
	s.mu.Lock()
	snapshot := make(map[string]*entity.Entity, len(s.cache))
	for k, e := range s.cache {
		snapshot[k] = e.Clone()
	}
	s.mu.Unlock()
	// Writing the file itself is not done under the lock: readers are not
	// concurrent with in-memory cache mutation, but slow file I/O must not
	// block them (spec.md §5, "Shared-resource policy").
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FileStoreFlushDuration)
	return s.writeFile(snapshot)
}

// Rollback implements kv.Resource: reload the cache from disk, discarding
// whatever Save/Delete wrote since the last Commit.
func (s *FileStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// CreateSavepoint implements kv.Resource as a no-op: the file-backed
// store does not implement fine-grained savepoints (spec.md §4.3).
func (s *FileStore) CreateSavepoint(context.Context, string) error { return nil }

// RollbackToSavepoint implements kv.Resource as a no-op.
func (s *FileStore) RollbackToSavepoint(context.Context, string) error { return nil }

// DiscardSavepoint implements kv.Resource as a no-op.
func (s *FileStore) DiscardSavepoint(context.Context, string) error { return nil }
