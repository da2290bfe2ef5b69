/*
Package filestore implements the reference backend from spec.md §4.3: a
durable, JSON-file-backed key-value store with an in-memory cache, a
single mutex protecting that cache, and load-on-rollback semantics.

# Architecture

	┌──────────────────── FILE-BACKED STORE ────────────────────┐
	│                                                              │
	│  ┌────────────────────────────────────────────┐            │
	│  │              FileStore                       │            │
	│  │  - cache: map[string]*entity.Entity          │            │
	│  │    (authoritative during a session)          │            │
	│  │  - one sync.Mutex, scope limited to the map   │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Mutation (Save/Delete/...)            │            │
	│  │  - updates cache only, immediately            │            │
	│  │  - does NOT touch the file                    │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │              Commit                          │            │
	│  │  1. clone cache under lock, unlock            │            │
	│  │  2. serialize clone to bytes                  │            │
	│  │  3. write <path>.tmp, fsync                   │            │
	│  │  4. rename <path>.tmp -> <path>               │            │
	│  │  5. fsync containing directory                │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │             Rollback                         │            │
	│  │  - reloads cache from <path>, discarding       │            │
	│  │    whatever Save/Delete wrote in between       │            │
	│  └────────────────────────────────────────────┘             │
	└──────────────────────────────────────────────────────────────┘

The file on disk is authoritative across process restarts; the in-memory
cache is authoritative during a session (spec.md §4.3, "Representation").
Savepoint operations are no-ops here: fine-grained savepoints are the
resource adapter's job (pkg/resource), not the backend's — see
spec.md §4.3, "Public contract (resource)".
*/
package filestore
