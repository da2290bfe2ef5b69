//go:build !windows

package registrystore

import (
	"context"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"
)

// RegistryStore is a stub on non-Windows platforms: the Windows registry
// API this backend wraps does not exist here. Open always fails, so the
// provider registry reports Unavailable for a registry provider entry
// (and the config loader still accepts one) without the build failing.
// The data methods, Prepare and Commit return Unavailable; Rollback and
// the savepoint methods return nil.
type RegistryStore struct{}

// Open always fails with Unavailable on non-Windows platforms.
func Open(Options) (*RegistryStore, error) {
	return nil, txnerr.New(txnerr.Unavailable, "registry-backed store is only available on windows")
}

func (s *RegistryStore) unavailable() error {
	return txnerr.New(txnerr.Unavailable, "registry-backed store is only available on windows")
}

func (s *RegistryStore) Get(context.Context, string) (*entity.Entity, bool, error) {
	return nil, false, s.unavailable()
}
func (s *RegistryStore) GetMany(context.Context, []string) (map[string]*entity.Entity, error) {
	return nil, s.unavailable()
}
func (s *RegistryStore) GetAll(context.Context, func(string, *entity.Entity) bool) (map[string]*entity.Entity, error) {
	return nil, s.unavailable()
}
func (s *RegistryStore) Save(context.Context, string, *entity.Entity) error { return s.unavailable() }
func (s *RegistryStore) SaveMany(context.Context, map[string]*entity.Entity) error {
	return s.unavailable()
}
func (s *RegistryStore) Delete(context.Context, string) error   { return s.unavailable() }
func (s *RegistryStore) Exists(context.Context, string) (bool, error) {
	return false, s.unavailable()
}
func (s *RegistryStore) Count(context.Context) (int, error) { return 0, s.unavailable() }
func (s *RegistryStore) Clear(context.Context) error         { return s.unavailable() }

func (s *RegistryStore) Prepare(context.Context) (bool, error) { return false, s.unavailable() }
func (s *RegistryStore) Commit(context.Context) error           { return s.unavailable() }
func (s *RegistryStore) Rollback(context.Context) error         { return nil }
func (s *RegistryStore) CreateSavepoint(context.Context, string) error     { return nil }
func (s *RegistryStore) RollbackToSavepoint(context.Context, string) error { return nil }
func (s *RegistryStore) DiscardSavepoint(context.Context, string) error    { return nil }
