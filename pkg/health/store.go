package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/ledger/pkg/kv"
)

// StoreChecker reports a kv.Store healthy if Count completes within
// Timeout. Count is chosen over Get/Exists because every backend
// implements it without requiring a well-known key to exist.
type StoreChecker struct {
	Name    string
	Store   kv.Store
	Timeout time.Duration
}

// NewStoreChecker returns a StoreChecker with a 5 second default timeout.
func NewStoreChecker(name string, store kv.Store) *StoreChecker {
	return &StoreChecker{Name: name, Store: store, Timeout: 5 * time.Second}
}

// Check implements Checker.
func (s *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	count, err := s.Store.Count(checkCtx)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s: count failed: %v", s.Name, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("%s: %d entities", s.Name, count),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type implements Checker.
func (s *StoreChecker) Type() CheckType {
	return CheckTypeStore
}

// WithTimeout sets the check deadline.
func (s *StoreChecker) WithTimeout(timeout time.Duration) *StoreChecker {
	s.Timeout = timeout
	return s
}
