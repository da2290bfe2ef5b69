/*
Package kv defines the storage-provider contract every ledger backend must
satisfy, plus the staged-operation types a resource adapter buffers until
commit.

# Architecture

	┌────────────────── KV STORE CONTRACT ──────────────────┐
	│                                                          │
	│   Store            - get/save/delete over string keys  │
	│     │               and *entity.Entity values           │
	│     │                                                    │
	│     ▼                                                    │
	│   Resource          - prepare/commit/rollback/savepoint  │
	│                       ops a backend exposes so it can    │
	│                       participate in two-phase commit    │
	│                       directly (see pkg/kv/boltstore,    │
	│                       pkg/kv/sqlitestore)                │
	└──────────────────────────────────────────────────────────┘

Every backend under pkg/kv/* implements both interfaces. pkg/resource wraps
any Store in a buffering adapter that also implements Resource, so a
backend that has no native transaction support (pkg/kv/filestore,
pkg/kv/memstore) still participates in the coordinator's 2PC the same way
a backend with native transactions does.
*/
package kv

import (
	"context"
	"time"

	"github.com/cuemby/ledger/pkg/entity"
)

// Store is the storage-provider contract from spec.md §2/§4.3. All methods
// accept a context for cancellation per spec.md §5.
type Store interface {
	Get(ctx context.Context, key string) (*entity.Entity, bool, error)
	GetMany(ctx context.Context, keys []string) (map[string]*entity.Entity, error)
	GetAll(ctx context.Context, predicate func(key string, e *entity.Entity) bool) (map[string]*entity.Entity, error)
	Save(ctx context.Context, key string, e *entity.Entity) error
	SaveMany(ctx context.Context, entries map[string]*entity.Entity) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Resource is the coordinator-facing two-phase-commit contract from
// spec.md §4.2. A resource adapter wrapping a Store implements this; a
// backend with its own native transaction (boltstore, sqlitestore) may
// also implement it directly and be enlisted without an adapter.
type Resource interface {
	Prepare(ctx context.Context) (bool, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	CreateSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	DiscardSavepoint(ctx context.Context, name string) error
}

// StagedKind distinguishes a buffered Save from a buffered Delete.
type StagedKind int

const (
	StagedSave StagedKind = iota
	StagedDelete
)

func (k StagedKind) String() string {
	if k == StagedDelete {
		return "delete"
	}
	return "save"
}

// StagedOp is one buffered intent inside a resource adapter, per
// spec.md §3. Entity is nil when Kind is StagedDelete.
type StagedOp struct {
	Kind     StagedKind
	Key      string
	Entity   *entity.Entity
	StagedAt time.Time
}

// Clone returns a deep copy of op, used when snapshotting for a savepoint.
func (op StagedOp) Clone() StagedOp {
	clone := op
	clone.Entity = op.Entity.Clone()
	return clone
}
