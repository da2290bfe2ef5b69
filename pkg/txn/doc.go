/*
Package txn implements the Transaction Coordinator from spec.md §4.1: an
in-process, two-phase-commit session that enlists heterogeneous
kv.Resource instances, sequences prepare/commit/rollback across them, and
maintains a savepoint stack.

# State machine (spec.md §4.1)

	Active -> Preparing -> Prepared -> Committing -> Committed
	Active -> Aborting -> Aborted
	Committing -> Committed (PartiallyCommitted outcome, on a commit error)

A session's state advances exactly once along the success or failure
path. Session methods reject calls against a Committed or Aborted
session with InvalidState.

# Exactly-once guard

Session embodies the "scoped transactional session" REDESIGN FLAG from
spec.md §10: callers are expected to defer session.Dispose(ctx), whose
drop path rolls back automatically if the session is still Active —
idiomatic Go's answer to a language-specific using/try-finally idiom.
*/
package txn
