// Package integration exercises config.Load, pkg/providers' registry,
// pkg/resource's adapter, and pkg/txn's coordinator together, the same
// stack cmd/ledgerctl wires at runtime, against the Scenarios from
// spec.md §8.
package integration_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ledger/pkg/config"
	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/providers"
	"github.com/cuemby/ledger/pkg/resource"
	"github.com/cuemby/ledger/pkg/txn"
)

type item struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

func mustPayload(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func readPayload(t *testing.T, raw []byte) item {
	t.Helper()
	var v item
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func writeConfig(t *testing.T, entries ...config.ProviderConfig) *config.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	doc := &config.Document{Providers: entries}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	return loaded
}

func newRegistry(t *testing.T, entries ...config.ProviderConfig) *providers.Registry {
	t.Helper()
	return providers.NewRegistry(writeConfig(t, entries...))
}

// Scenario A — simple save/commit.
func TestScenarioA_SimpleSaveCommit(t *testing.T) {
	reg := newRegistry(t, config.ProviderConfig{Name: "catalog", TypeName: "memstore", Enabled: true})
	store, err := reg.Store("catalog")
	require.NoError(t, err)

	adapter := resource.New("catalog", store)
	session := txn.NewCoordinator().Begin()
	require.NoError(t, session.Enlist(adapter))

	require.NoError(t, adapter.StageSave("p/1", &entity.Entity{
		Key: "p/1", Version: 1, Payload: mustPayload(t, item{ID: "1", Qty: 3}),
	}))

	ctx := context.Background()
	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	exists, err := store.Exists(ctx, "p/1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, ok, err := store.Get(ctx, "p/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, readPayload(t, got.Payload).Qty)
}

// Scenario B — rollback restores the prior view.
func TestScenarioB_RollbackRestoresPriorView(t *testing.T) {
	reg := newRegistry(t, config.ProviderConfig{Name: "catalog", TypeName: "memstore", Enabled: true})
	store, err := reg.Store("catalog")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "p/1", &entity.Entity{
		Key: "p/1", Version: 1, Payload: mustPayload(t, item{ID: "1", Qty: 1}),
	}))

	adapter := resource.New("catalog", store)
	session := txn.NewCoordinator().Begin()
	require.NoError(t, session.Enlist(adapter))

	require.NoError(t, adapter.StageSave("p/1", &entity.Entity{
		Key: "p/1", Version: 2, Payload: mustPayload(t, item{ID: "1", Qty: 9}),
	}))

	outcome, err := session.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)

	got, ok, err := store.Get(ctx, "p/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, readPayload(t, got.Payload).Qty)
}

// Scenario C — multi-resource 2PC success across two distinct providers.
func TestScenarioC_MultiResourceCommit(t *testing.T) {
	reg := newRegistry(t,
		config.ProviderConfig{Name: "orders", TypeName: "memstore", Enabled: true},
		config.ProviderConfig{Name: "payments", TypeName: "memstore", Enabled: true},
	)
	orderStore, err := reg.Store("orders")
	require.NoError(t, err)
	paymentStore, err := reg.Store("payments")
	require.NoError(t, err)

	orderAdapter := resource.New("orders", orderStore)
	paymentAdapter := resource.New("payments", paymentStore)

	session := txn.NewCoordinator().Begin()
	require.NoError(t, session.Enlist(orderAdapter))
	require.NoError(t, session.Enlist(paymentAdapter))

	require.NoError(t, orderAdapter.StageSave("order/o1", &entity.Entity{Key: "order/o1", Version: 1}))
	require.NoError(t, paymentAdapter.StageSave("pay/p1", &entity.Entity{Key: "pay/p1", Version: 1}))

	ctx := context.Background()
	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	orderExists, err := orderStore.Exists(ctx, "order/o1")
	require.NoError(t, err)
	assert.True(t, orderExists)

	paymentExists, err := paymentStore.Exists(ctx, "pay/p1")
	require.NoError(t, err)
	assert.True(t, paymentExists)
}

// Scenario D — a prepare veto aborts every enlisted resource.
func TestScenarioD_PrepareVetoAbortsAllResources(t *testing.T) {
	reg := newRegistry(t,
		config.ProviderConfig{Name: "orders", TypeName: "memstore", Enabled: true},
		config.ProviderConfig{Name: "payments", TypeName: "memstore", Enabled: true},
	)
	orderStore, err := reg.Store("orders")
	require.NoError(t, err)
	paymentStore, err := reg.Store("payments")
	require.NoError(t, err)

	orderAdapter := resource.New("orders", orderStore)
	paymentAdapter := resource.New("payments", paymentStore)

	session := txn.NewCoordinator().Begin()
	require.NoError(t, session.Enlist(orderAdapter))
	require.NoError(t, session.Enlist(paymentAdapter))

	require.NoError(t, orderAdapter.StageSave("order/o2", &entity.Entity{Key: "order/o2", Version: 1}))
	// A delete of a key that was never saved fails Prepare's existence check.
	require.NoError(t, paymentAdapter.StageDelete("pay/missing"))

	ctx := context.Background()
	outcome, err := session.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)

	orderExists, err := orderStore.Exists(ctx, "order/o2")
	require.NoError(t, err)
	assert.False(t, orderExists)
}

// Scenario E — savepoint rollback then commit.
func TestScenarioE_SavepointRollbackThenCommit(t *testing.T) {
	reg := newRegistry(t, config.ProviderConfig{Name: "catalog", TypeName: "memstore", Enabled: true})
	store, err := reg.Store("catalog")
	require.NoError(t, err)

	adapter := resource.New("catalog", store)
	session := txn.NewCoordinator().Begin()
	require.NoError(t, session.Enlist(adapter))

	ctx := context.Background()
	require.NoError(t, adapter.StageSave("a", &entity.Entity{Key: "a", Version: 1}))
	require.NoError(t, session.SavePoint(ctx, "sp1"))

	require.NoError(t, adapter.StageSave("b", &entity.Entity{Key: "b", Version: 1}))
	require.NoError(t, adapter.StageDelete("a"))

	require.NoError(t, session.RollbackTo(ctx, "sp1"))

	staged := adapter.Staged()
	require.Len(t, staged, 1)
	_, hasA := staged["a"]
	assert.True(t, hasA)

	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	aExists, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, aExists)

	bExists, err := store.Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, bExists)
}

// Scenario F — later committer wins, no corruption, both sessions reach Committed.
func TestScenarioF_ConcurrentWritersLaterCommitWins(t *testing.T) {
	reg := newRegistry(t, config.ProviderConfig{Name: "catalog", TypeName: "memstore", Enabled: true})
	store, err := reg.Store("catalog")
	require.NoError(t, err)

	ctx := context.Background()
	coordinator := txn.NewCoordinator()

	firstAdapter := resource.New("catalog", store)
	firstSession := coordinator.Begin()
	require.NoError(t, firstSession.Enlist(firstAdapter))
	require.NoError(t, firstAdapter.StageSave("k", &entity.Entity{
		Key: "k", Version: 1, Payload: mustPayload(t, item{ID: "k", Qty: 1}),
	}))
	firstOutcome, err := firstSession.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, firstOutcome)

	secondAdapter := resource.New("catalog", store)
	secondSession := coordinator.Begin()
	require.NoError(t, secondSession.Enlist(secondAdapter))
	require.NoError(t, secondAdapter.StageSave("k", &entity.Entity{
		Key: "k", Version: 2, Payload: mustPayload(t, item{ID: "k", Qty: 2}),
	}))
	secondOutcome, err := secondSession.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, secondOutcome)

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, readPayload(t, got.Payload).Qty)
}
