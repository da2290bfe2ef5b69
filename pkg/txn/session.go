package txn

import (
	"context"
	"sync"

	"github.com/cuemby/ledger/pkg/kv"
	"github.com/cuemby/ledger/pkg/log"
	"github.com/cuemby/ledger/pkg/metrics"
	"github.com/cuemby/ledger/pkg/txnerr"
	"github.com/google/uuid"
)

// State is a session's position in the 2PC state machine (spec.md §4.1).
type State int

const (
	Active State = iota
	Preparing
	Prepared
	Committing
	Aborting
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Preparing:
		return "preparing"
	case Prepared:
		return "prepared"
	case Committing:
		return "committing"
	case Aborting:
		return "aborting"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal status of a session.
type Outcome string

const (
	OutcomeCommitted          Outcome = "committed"
	OutcomeAborted            Outcome = "aborted"
	OutcomePartiallyCommitted Outcome = "partially_committed"
)

// Session is a single 2PC transaction: it enrolls resources, sequences
// prepare/commit across them in enrollment order and rollback in reverse
// enrollment order, and maintains
// a savepoint stack. The zero value is not usable; construct one with
// Coordinator.Begin.
type Session struct {
	id uuid.UUID

	mu         sync.Mutex
	state      State
	enrolled   []kv.Resource
	savepoints []string

	logger log.Logger
}

// ID returns the session's UUID as a string.
func (s *Session) ID() string {
	return s.id.String()
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enlist appends resource to the enrolled set, in order. Enlisting the
// same resource twice (identity-compared) is idempotent. Fails with
// InvalidState if the session is not Active.
func (s *Session) Enlist(resource kv.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return txnerr.Newf(txnerr.InvalidState, "session %s: cannot enlist in state %s", s.id, s.state)
	}
	for _, r := range s.enrolled {
		if r == resource {
			return nil
		}
	}
	s.enrolled = append(s.enrolled, resource)
	metrics.RecordResourceEnrolled()
	return nil
}

// SavePoint records a snapshot across every enrolled resource and pushes
// name onto the savepoint stack. A duplicate name replaces the prior
// snapshot and moves to the top of the stack (latest wins).
func (s *Session) SavePoint(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return txnerr.Newf(txnerr.InvalidState, "session %s: cannot save_point in state %s", s.id, s.state)
	}
	enrolled := append([]kv.Resource(nil), s.enrolled...)
	s.mu.Unlock()

	for _, r := range enrolled {
		if err := r.CreateSavepoint(ctx, name); err != nil {
			return txnerr.Wrap(txnerr.Unavailable, "save_point "+name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.savepoints = removeSavepoint(s.savepoints, name)
	s.savepoints = append(s.savepoints, name)
	return nil
}

// RollbackTo applies the named snapshot to every enrolled resource, then
// pops name and every savepoint pushed after it from the stack. Fails
// with UnknownSavepoint if name is not on the stack.
func (s *Session) RollbackTo(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return txnerr.Newf(txnerr.InvalidState, "session %s: cannot rollback_to in state %s", s.id, s.state)
	}
	idx := indexOf(s.savepoints, name)
	if idx < 0 {
		s.mu.Unlock()
		return txnerr.Newf(txnerr.UnknownSavepoint, "no savepoint named %q", name)
	}
	enrolled := append([]kv.Resource(nil), s.enrolled...)
	s.mu.Unlock()

	for _, r := range enrolled {
		if err := r.RollbackToSavepoint(ctx, name); err != nil {
			return txnerr.Wrap(txnerr.Unavailable, "rollback_to "+name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.savepoints = s.savepoints[:idx]
	return nil
}

// Commit drives the 2PC sequence in spec.md §4.1 step 1-8 across every
// enrolled resource, in enrollment order.
func (s *Session) Commit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != Active {
		state := s.state
		s.mu.Unlock()
		return "", txnerr.Newf(txnerr.InvalidState, "session %s: cannot commit in state %s", s.id, state)
	}
	s.state = Preparing
	enrolled := append([]kv.Resource(nil), s.enrolled...)
	s.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CommitDuration)

	allPrepared := true
	for _, r := range enrolled {
		if ctx.Err() != nil {
			allPrepared = false
			break
		}
		ok, err := r.Prepare(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("prepare errored, treating as no-vote")
			allPrepared = false
			break
		}
		if !ok {
			allPrepared = false
			break
		}
	}

	if !allPrepared {
		return s.abort(ctx, enrolled)
	}

	s.mu.Lock()
	s.state = Prepared
	s.state = Committing
	s.mu.Unlock()

	cancelled := false
	partial := false
	for _, r := range enrolled {
		if ctx.Err() != nil {
			cancelled = true
		}
		if err := r.Commit(ctx); err != nil {
			s.logger.Error().Err(err).Msg("commit failed after successful prepare")
			partial = true
		}
	}

	s.mu.Lock()
	s.state = Committed
	s.mu.Unlock()
	s.releaseResources(len(enrolled))

	switch {
	case partial && cancelled:
		metrics.RecordSessionEnd(string(OutcomePartiallyCommitted))
		return OutcomePartiallyCommitted, txnerr.New(txnerr.Cancelled, "commit cancelled mid-flight; some resources committed")
	case partial:
		metrics.RecordSessionEnd(string(OutcomePartiallyCommitted))
		return OutcomePartiallyCommitted, txnerr.New(txnerr.PartiallyCommitted, "one or more resources failed to commit after a successful prepare")
	case cancelled:
		// Every resource still committed despite the cancellation, but
		// the caller asked to stop; surface Cancelled rather than hiding
		// it behind a plain success (spec.md §5).
		metrics.RecordSessionEnd(string(OutcomeCommitted))
		return OutcomeCommitted, txnerr.New(txnerr.Cancelled, "commit observed cancellation but every resource committed")
	default:
		metrics.RecordSessionEnd(string(OutcomeCommitted))
		return OutcomeCommitted, nil
	}
}

// abort drives the Aborting -> Aborted path: rollback every enrolled
// resource, logging and swallowing any error, then report PrepareFailed.
func (s *Session) abort(ctx context.Context, enrolled []kv.Resource) (Outcome, error) {
	s.mu.Lock()
	s.state = Aborting
	s.mu.Unlock()

	// Reverse enrollment order so rollback mirrors stack-like resource
	// release (spec.md §4.1, "Ordering guarantees").
	for i := len(enrolled) - 1; i >= 0; i-- {
		if err := enrolled[i].Rollback(ctx); err != nil {
			s.logger.Error().Err(err).Msg("rollback during abort failed; continuing")
		}
	}

	s.mu.Lock()
	s.state = Aborted
	s.mu.Unlock()

	s.releaseResources(len(enrolled))
	metrics.RecordSessionEnd(string(OutcomeAborted))
	return OutcomeAborted, txnerr.New(txnerr.PrepareFailed, "prepare vetoed or errored; session rolled back")
}

// releaseResources decrements the enrolled-resources gauge by n, called
// once a session reaches a terminal state.
func (s *Session) releaseResources(n int) {
	for i := 0; i < n; i++ {
		metrics.RecordResourceReleased()
	}
}

// Rollback aborts the session directly, without a prepare phase. Safe to
// call only while Active.
func (s *Session) Rollback(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != Active {
		state := s.state
		s.mu.Unlock()
		return "", txnerr.Newf(txnerr.InvalidState, "session %s: cannot rollback in state %s", s.id, state)
	}
	enrolled := append([]kv.Resource(nil), s.enrolled...)
	s.mu.Unlock()
	return s.abortDirect(ctx, enrolled)
}

func (s *Session) abortDirect(ctx context.Context, enrolled []kv.Resource) (Outcome, error) {
	s.mu.Lock()
	s.state = Aborting
	s.mu.Unlock()

	// Reverse enrollment order, same as abort (spec.md §4.1, "Ordering
	// guarantees").
	for i := len(enrolled) - 1; i >= 0; i-- {
		if err := enrolled[i].Rollback(ctx); err != nil {
			s.logger.Error().Err(err).Msg("rollback failed; continuing")
		}
	}

	s.mu.Lock()
	s.state = Aborted
	s.mu.Unlock()

	s.releaseResources(len(enrolled))
	metrics.RecordSessionEnd(string(OutcomeAborted))
	return OutcomeAborted, nil
}

// Dispose is the guard-object cleanup path from spec.md §10: if the
// session is still Active, it rolls back; otherwise it is a no-op. Safe
// to call more than once.
func (s *Session) Dispose(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != Active {
		return nil
	}
	_, err := s.Rollback(ctx)
	return err
}

func indexOf(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}

func removeSavepoint(stack []string, name string) []string {
	out := stack[:0:0]
	for _, n := range stack {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
