/*
Package boltstore is a BoltDB-backed (go.etcd.io/bbolt) KV backend. It
stores every entity in a single bucket keyed by the entity key, and uses
bbolt's own ACID transaction as the resource's two-phase-commit mechanism
instead of buffering writes separately the way filestore does.

Prepare begins a writable bbolt transaction and holds it open; Save,
SaveMany, and Delete write through that transaction once one is open
(falling back to an auto-committing db.Update when the store is used
directly, outside a session, per spec.md §3's "directly via a backend
bypasses staging but remains allowed for read paths"). Commit commits the
held transaction; Rollback rolls it back. This mirrors the teacher
package's original BoltStore (pkg/storage/boltdb.go), generalized from N
hand-written per-entity-type bucket methods to one generic bucket keyed
by opaque string keys.
*/
package boltstore
