package boltstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("ledger")

// Options configures a BoltStore.
type Options struct {
	// MaxValueBytes bounds the serialized Payload of any saved entity.
	// Zero means no limit.
	MaxValueBytes int
}

// BoltStore is a bbolt-backed kv.Store / kv.Resource implementation.
type BoltStore struct {
	mu            sync.Mutex
	db            *bolt.DB
	tx            *bolt.Tx // open write tx between Prepare and Commit/Rollback, nil otherwise
	maxValueBytes int
}

// Open opens (creating if absent) the bbolt file at path and ensures the
// ledger bucket exists.
func Open(path string, opts Options) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, "open bolt database", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, txnerr.Wrap(txnerr.Unavailable, "create bolt bucket", err)
	}
	return &BoltStore{db: db, maxValueBytes: opts.MaxValueBytes}, nil
}

// Close releases the underlying bbolt file handle.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

func validateKey(key string) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	return nil
}

func (s *BoltStore) validateValue(e *entity.Entity) error {
	if e == nil {
		return txnerr.New(txnerr.InvalidEntity, "entity must not be nil")
	}
	if s.maxValueBytes > 0 && len(e.Payload) > s.maxValueBytes {
		return txnerr.Newf(txnerr.ValueTooLarge, "value %d bytes exceeds max %d", len(e.Payload), s.maxValueBytes)
	}
	return nil
}

// withBucket runs fn against the ledger bucket. If a write transaction is
// currently open (between Prepare and Commit/Rollback) it is reused
// without being committed; otherwise a fresh auto-committing transaction
// is started, matching write to the caller's requested mode.
func (s *BoltStore) withBucket(writable bool, fn func(b *bolt.Bucket) error) error {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()

	if tx != nil {
		return fn(tx.Bucket(bucketName))
	}
	if writable {
		return s.db.Update(func(tx *bolt.Tx) error {
			return fn(tx.Bucket(bucketName))
		})
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

func decodeEntity(data []byte) (*entity.Entity, error) {
	if data == nil {
		return nil, nil
	}
	var e entity.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "decode bolt value", err)
	}
	return &e, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (*entity.Entity, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	var out *entity.Entity
	found := false
	err := s.withBucket(false, func(b *bolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		e, err := decodeEntity(data)
		if err != nil {
			return err
		}
		out, found = e, true
		return nil
	})
	return out, found, err
}

func (s *BoltStore) GetMany(_ context.Context, keys []string) (map[string]*entity.Entity, error) {
	out := make(map[string]*entity.Entity)
	err := s.withBucket(false, func(b *bolt.Bucket) error {
		for _, k := range keys {
			data := b.Get([]byte(k))
			if data == nil {
				continue
			}
			e, err := decodeEntity(data)
			if err != nil {
				return err
			}
			out[k] = e
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) GetAll(_ context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error) {
	out := make(map[string]*entity.Entity)
	err := s.withBucket(false, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			e, err := decodeEntity(v)
			if err != nil {
				return err
			}
			key := string(k)
			if predicate == nil || predicate(key, e) {
				out[key] = e
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Save(_ context.Context, key string, e *entity.Entity) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.validateValue(e); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return txnerr.Wrap(txnerr.Serialization, "encode bolt value", err)
	}
	return s.withBucket(true, func(b *bolt.Bucket) error {
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) SaveMany(_ context.Context, entries map[string]*entity.Entity) error {
	encoded := make(map[string][]byte, len(entries))
	for key, e := range entries {
		if err := validateKey(key); err != nil {
			return err
		}
		if err := s.validateValue(e); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return txnerr.Wrap(txnerr.Serialization, "encode bolt value", err)
		}
		encoded[key] = data
	}
	return s.withBucket(true, func(b *bolt.Bucket) error {
		for key, data := range encoded {
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.withBucket(true, func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) Exists(_ context.Context, key string) (bool, error) {
	found := false
	err := s.withBucket(false, func(b *bolt.Bucket) error {
		found = b.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.withBucket(false, func(b *bolt.Bucket) error {
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) Clear(_ context.Context) error {
	return s.withBucket(true, func(b *bolt.Bucket) error {
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.First() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Prepare implements kv.Resource: begin a writable bbolt transaction and
// hold it open until Commit or Rollback. Idempotent: a second Prepare
// call while one is already open just reports success.
func (s *BoltStore) Prepare(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return true, nil
	}
	tx, err := s.db.Begin(true)
	if err != nil {
		return false, txnerr.Wrap(txnerr.Unavailable, "begin bolt transaction", err)
	}
	s.tx = tx
	return true, nil
}

// Commit implements kv.Resource: commit the transaction opened by Prepare.
func (s *BoltStore) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "commit bolt transaction", err)
	}
	return nil
}

// Rollback implements kv.Resource: discard the transaction opened by
// Prepare, undoing every Save/Delete made through it.
func (s *BoltStore) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

func (s *BoltStore) CreateSavepoint(context.Context, string) error     { return nil }
func (s *BoltStore) RollbackToSavepoint(context.Context, string) error { return nil }
func (s *BoltStore) DiscardSavepoint(context.Context, string) error    { return nil }
