// Package sqlitestore is a SQLite-backed (mattn/go-sqlite3) KV backend,
// one of the "compliant backends" spec.md §2 names alongside file-backed
// JSON, in-memory, and registry-backed stores. It uses a real
// database/sql transaction as the resource's prepare/commit/rollback
// mechanism, demonstrating a backend whose native transaction semantics
// are stronger than the resource adapter's own buffered-write default.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_kv (
	key     TEXT PRIMARY KEY,
	value   BLOB NOT NULL
);
`

// Options configures a SQLiteStore.
type Options struct {
	// MaxValueBytes bounds the serialized Payload of any saved entity.
	// Zero means no limit.
	MaxValueBytes int
}

// SQLiteStore is a mattn/go-sqlite3 backed kv.Store / kv.Resource.
// dataSource follows spec.md §6's DataSource option: a file path, or
// ":memory:" for an ephemeral database.
type SQLiteStore struct {
	mu            sync.Mutex
	db            *sql.DB
	tx            *sql.Tx // open write tx between Prepare and Commit/Rollback, nil otherwise
	maxValueBytes int
}

// Open opens (creating if absent) the SQLite database at dataSource and
// ensures the backing table exists.
func Open(dataSource string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSource)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, "open sqlite database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, txnerr.Wrap(txnerr.Unavailable, "create sqlite schema", err)
	}
	return &SQLiteStore{db: db, maxValueBytes: opts.MaxValueBytes}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
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

func (s *SQLiteStore) validateValue(e *entity.Entity) error {
	if e == nil {
		return txnerr.New(txnerr.InvalidEntity, "entity must not be nil")
	}
	if s.maxValueBytes > 0 && len(e.Payload) > s.maxValueBytes {
		return txnerr.Newf(txnerr.ValueTooLarge, "value %d bytes exceeds max %d", len(e.Payload), s.maxValueBytes)
	}
	return nil
}

// querier abstracts over *sql.DB and *sql.Tx so read/write helpers work
// whether or not a Prepare transaction is currently open.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) querier() querier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func decodeEntity(data []byte) (*entity.Entity, error) {
	var e entity.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "decode sqlite value", err)
	}
	return &e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*entity.Entity, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	var data []byte
	row := s.querier().QueryRowContext(ctx, `SELECT value FROM ledger_kv WHERE key = ?`, key)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, txnerr.Wrap(txnerr.Unavailable, "scan sqlite row", err)
	}
	e, err := decodeEntity(data)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (s *SQLiteStore) GetMany(ctx context.Context, keys []string) (map[string]*entity.Entity, error) {
	out := make(map[string]*entity.Entity, len(keys))
	for _, k := range keys {
		e, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = e
		}
	}
	return out, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error) {
	rows, err := s.querier().QueryContext(ctx, `SELECT key, value FROM ledger_kv`)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, "query sqlite", err)
	}
	defer rows.Close()
	out := make(map[string]*entity.Entity)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, txnerr.Wrap(txnerr.Unavailable, "scan sqlite row", err)
		}
		e, err := decodeEntity(data)
		if err != nil {
			return nil, err
		}
		if predicate == nil || predicate(key, e) {
			out[key] = e
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, key string, e *entity.Entity) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.validateValue(e); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return txnerr.Wrap(txnerr.Serialization, "encode sqlite value", err)
	}
	_, err = s.querier().ExecContext(ctx,
		`INSERT INTO ledger_kv(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, data)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "exec sqlite save", err)
	}
	return nil
}

func (s *SQLiteStore) SaveMany(ctx context.Context, entries map[string]*entity.Entity) error {
	for key, e := range entries {
		if err := s.Save(ctx, key, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.querier().ExecContext(ctx, `DELETE FROM ledger_kv WHERE key = ?`, key)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "exec sqlite delete", err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.querier().QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_kv`)
	if err := row.Scan(&count); err != nil {
		return 0, txnerr.Wrap(txnerr.Unavailable, "count sqlite rows", err)
	}
	return count, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.querier().ExecContext(ctx, `DELETE FROM ledger_kv`)
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "clear sqlite table", err)
	}
	return nil
}

// Prepare implements kv.Resource: begin a real sql.Tx and hold it open
// until Commit or Rollback.
func (s *SQLiteStore) Prepare(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return true, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, txnerr.Wrap(txnerr.Unavailable, "begin sqlite transaction", err)
	}
	s.tx = tx
	return true, nil
}

// Commit implements kv.Resource.
func (s *SQLiteStore) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return txnerr.Wrap(txnerr.Unavailable, "commit sqlite transaction", err)
	}
	return nil
}

// Rollback implements kv.Resource.
func (s *SQLiteStore) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

func (s *SQLiteStore) CreateSavepoint(context.Context, string) error     { return nil }
func (s *SQLiteStore) RollbackToSavepoint(context.Context, string) error { return nil }
func (s *SQLiteStore) DiscardSavepoint(context.Context, string) error    { return nil }
