package resource

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/kv"
	"github.com/cuemby/ledger/pkg/log"
	"github.com/cuemby/ledger/pkg/metrics"
	"github.com/cuemby/ledger/pkg/txnerr"
)

// Adapter wraps a kv.Store, buffering writes and deletes until the
// coordinator calls Commit. It implements kv.Resource so it can be
// enlisted in a transaction session (pkg/txn).
type Adapter struct {
	name  string
	store kv.Store

	mu         sync.Mutex
	staged     map[string]kv.StagedOp
	savepoints map[string][]kv.StagedOp // name -> cloned staged ops at create time
	logger     log.Logger
}

// New returns an Adapter wrapping store. name labels the adapter's logs
// and metrics and is returned by Name (conventionally the entity type,
// e.g. "Order").
func New(name string, store kv.Store) *Adapter {
	return &Adapter{
		name:       name,
		store:      store,
		staged:     make(map[string]kv.StagedOp),
		savepoints: make(map[string][]kv.StagedOp),
		logger:     log.WithResourceID(name),
	}
}

// Name returns the adapter's resource name.
func (a *Adapter) Name() string { return a.name }

// asResource returns the wrapped store as a kv.Resource if it implements
// one, so Prepare/Commit/Rollback/savepoint calls can delegate to it.
func (a *Adapter) asResource() (kv.Resource, bool) {
	r, ok := a.store.(kv.Resource)
	return r, ok
}

// StageSave adds or replaces a Save intent for key, clearing any pending
// Delete for the same key (spec.md §3).
func (a *Adapter) StageSave(key string, e *entity.Entity) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	a.mu.Lock()
	a.staged[key] = kv.StagedOp{Kind: kv.StagedSave, Key: key, Entity: e.Clone(), StagedAt: time.Now()}
	pending := len(a.staged)
	a.mu.Unlock()
	metrics.SetStagedOpsPending(a.name, pending)
	return nil
}

// StageSaveMany vectorizes StageSave over entries.
func (a *Adapter) StageSaveMany(entries map[string]*entity.Entity) error {
	for key := range entries {
		if key == "" {
			return txnerr.New(txnerr.InvalidKey, "key must not be empty")
		}
	}
	a.mu.Lock()
	now := time.Now()
	for key, e := range entries {
		a.staged[key] = kv.StagedOp{Kind: kv.StagedSave, Key: key, Entity: e.Clone(), StagedAt: now}
	}
	pending := len(a.staged)
	a.mu.Unlock()
	metrics.SetStagedOpsPending(a.name, pending)
	return nil
}

// StageDelete adds a Delete intent for key, clearing any pending Save for
// the same key (spec.md §3).
func (a *Adapter) StageDelete(key string) error {
	if key == "" {
		return txnerr.New(txnerr.InvalidKey, "key must not be empty")
	}
	a.mu.Lock()
	a.staged[key] = kv.StagedOp{Kind: kv.StagedDelete, Key: key, StagedAt: time.Now()}
	pending := len(a.staged)
	a.mu.Unlock()
	metrics.SetStagedOpsPending(a.name, pending)
	return nil
}

// Get is a read-through: a staged Delete reads as absent, a staged Save
// reads as the staged entity, and anything else falls through to the
// backend (spec.md §4.2, "Buffered-write semantics").
func (a *Adapter) Get(ctx context.Context, key string) (*entity.Entity, bool, error) {
	a.mu.Lock()
	op, staged := a.staged[key]
	a.mu.Unlock()

	if staged {
		if op.Kind == kv.StagedDelete {
			return nil, false, nil
		}
		return op.Entity.Clone(), true, nil
	}
	return a.store.Get(ctx, key)
}

// Staged returns a read-only copy of the currently buffered operations,
// for tests and diagnostics (spec.md §4.2).
func (a *Adapter) Staged() map[string]kv.StagedOp {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]kv.StagedOp, len(a.staged))
	for k, op := range a.staged {
		out[k] = op.Clone()
	}
	return out
}

// Prepare validates every staged entity (non-empty key, version >= 1,
// non-nil) and every staged Delete target (must currently exist in the
// backend — a best-effort, racy check documented in spec.md §9). It
// returns false, not an error, on a failing validation; prepare never
// surfaces the cause to the coordinator directly (spec.md §4.2/§7).
func (a *Adapter) Prepare(ctx context.Context) (bool, error) {
	a.mu.Lock()
	ops := make([]kv.StagedOp, 0, len(a.staged))
	for _, op := range a.staged {
		ops = append(ops, op.Clone())
	}
	a.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case kv.StagedSave:
			if err := op.Entity.Validate(); err != nil {
				a.logger.Warn().Err(err).Str("key", op.Key).Msg("prepare: invalid staged entity")
				metrics.RecordPrepareFailure(a.name)
				return false, nil
			}
		case kv.StagedDelete:
			exists, err := a.store.Exists(ctx, op.Key)
			if err != nil {
				a.logger.Warn().Err(err).Str("key", op.Key).Msg("prepare: delete-target existence check failed")
				metrics.RecordPrepareFailure(a.name)
				return false, nil
			}
			if !exists {
				a.logger.Warn().Str("key", op.Key).Msg("prepare: delete target does not exist")
				metrics.RecordPrepareFailure(a.name)
				return false, nil
			}
		}
	}

	if backend, ok := a.asResource(); ok {
		voted, err := backend.Prepare(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("prepare: backend vetoed")
			metrics.RecordPrepareFailure(a.name)
			return false, nil
		}
		if !voted {
			metrics.RecordPrepareFailure(a.name)
		}
		return voted, nil
	}
	return true, nil
}

// Commit applies every staged Delete, then one SaveMany for every staged
// Save, delegates to the backend's own Commit if it implements
// kv.Resource, and clears staged state once the backend has acknowledged
// (spec.md §4.2).
func (a *Adapter) Commit(ctx context.Context) error {
	a.mu.Lock()
	ops := make([]kv.StagedOp, 0, len(a.staged))
	for _, op := range a.staged {
		ops = append(ops, op.Clone())
	}
	a.mu.Unlock()

	saves := make(map[string]*entity.Entity)
	for _, op := range ops {
		if op.Kind == kv.StagedDelete {
			if err := a.store.Delete(ctx, op.Key); err != nil {
				return txnerr.Wrap(txnerr.Unavailable, "commit: delete "+op.Key, err)
			}
		}
	}
	for _, op := range ops {
		if op.Kind == kv.StagedSave {
			saves[op.Key] = op.Entity
		}
	}
	if len(saves) > 0 {
		if err := a.store.SaveMany(ctx, saves); err != nil {
			return txnerr.Wrap(txnerr.Unavailable, "commit: save_many", err)
		}
	}

	if backend, ok := a.asResource(); ok {
		if err := backend.Commit(ctx); err != nil {
			return txnerr.Wrap(txnerr.Unavailable, "commit: backend commit", err)
		}
	}

	a.mu.Lock()
	a.staged = make(map[string]kv.StagedOp)
	a.mu.Unlock()
	metrics.SetStagedOpsPending(a.name, 0)
	return nil
}

// Rollback discards all staged state and delegates to the backend's own
// Rollback if it implements kv.Resource. Rollback always completes: the
// coordinator is responsible for logging and swallowing any backend
// error (spec.md §7).
func (a *Adapter) Rollback(ctx context.Context) error {
	a.mu.Lock()
	a.staged = make(map[string]kv.StagedOp)
	a.mu.Unlock()
	metrics.SetStagedOpsPending(a.name, 0)

	if backend, ok := a.asResource(); ok {
		return backend.Rollback(ctx)
	}
	return nil
}

// CreateSavepoint deep-copies the current staged map, tags it with name
// (replacing any prior snapshot of the same name — latest wins, per
// spec.md §4.1), and delegates to the backend if applicable.
func (a *Adapter) CreateSavepoint(ctx context.Context, name string) error {
	a.mu.Lock()
	snapshot := make([]kv.StagedOp, 0, len(a.staged))
	for _, op := range a.staged {
		snapshot = append(snapshot, op.Clone())
	}
	a.savepoints[name] = snapshot
	a.mu.Unlock()

	if backend, ok := a.asResource(); ok {
		return backend.CreateSavepoint(ctx, name)
	}
	return nil
}

// RollbackToSavepoint overwrites the staged map from the named snapshot.
func (a *Adapter) RollbackToSavepoint(ctx context.Context, name string) error {
	a.mu.Lock()
	snapshot, ok := a.savepoints[name]
	if !ok {
		a.mu.Unlock()
		return txnerr.Newf(txnerr.UnknownSavepoint, "no savepoint named %q", name)
	}
	staged := make(map[string]kv.StagedOp, len(snapshot))
	for _, op := range snapshot {
		staged[op.Key] = op.Clone()
	}
	a.staged = staged
	a.mu.Unlock()

	if backend, ok := a.asResource(); ok {
		return backend.RollbackToSavepoint(ctx, name)
	}
	return nil
}

// DiscardSavepoint drops the named snapshot. Discarding an unknown name
// is a no-op, not an error: discard is cleanup, not a correctness check.
func (a *Adapter) DiscardSavepoint(ctx context.Context, name string) error {
	a.mu.Lock()
	delete(a.savepoints, name)
	a.mu.Unlock()

	if backend, ok := a.asResource(); ok {
		return backend.DiscardSavepoint(ctx, name)
	}
	return nil
}

var _ kv.Resource = (*Adapter)(nil)
