package txn

import (
	"github.com/cuemby/ledger/pkg/log"
	"github.com/cuemby/ledger/pkg/metrics"
	"github.com/google/uuid"
)

// Coordinator is a process-wide factory for Sessions. It holds no
// per-session state itself — each Session owns its own enrolled
// resources and savepoint stack — so a Coordinator is safe to share
// across goroutines and to keep as a package-level singleton.
type Coordinator struct {
	logger log.Logger
}

// NewCoordinator returns a ready-to-use Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{logger: log.WithComponent("txn")}
}

// Begin creates a new Active session with a fresh UUID (spec.md §4.1).
func (c *Coordinator) Begin() *Session {
	id := uuid.New()
	metrics.RecordSessionStart()
	return &Session{
		id:     id,
		state:  Active,
		logger: log.WithSessionID(id.String()),
	}
}
