package txn_test

import (
	"context"
	"testing"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/kv/memstore"
	"github.com/cuemby/ledger/pkg/resource"
	"github.com/cuemby/ledger/pkg/txn"
	"github.com/cuemby/ledger/pkg/txnerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntity(key string, payload string) *entity.Entity {
	return &entity.Entity{Key: key, Version: 1, Payload: []byte(payload)}
}

// Scenario A: simple save/commit.
func TestCoordinator_SimpleSaveCommit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	adapter := resource.New("Product", store)

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(adapter))
	require.NoError(t, adapter.StageSave("p/1", newEntity("p/1", `{"qty":3}`)))

	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	exists, err := store.Exists(ctx, "p/1")
	require.NoError(t, err)
	assert.True(t, exists)
	e, _, err := store.Get(ctx, "p/1")
	require.NoError(t, err)
	assert.Equal(t, `{"qty":3}`, string(e.Payload))
}

// Scenario B: rollback restores the prior view.
func TestCoordinator_RollbackRestoresPriorView(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	require.NoError(t, store.Save(ctx, "p/1", newEntity("p/1", `{"qty":1}`)))
	require.NoError(t, store.Commit(ctx))

	adapter := resource.New("Product", store)
	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(adapter))
	require.NoError(t, adapter.StageSave("p/1", newEntity("p/1", `{"qty":9}`)))

	outcome, err := session.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)

	e, _, err := store.Get(ctx, "p/1")
	require.NoError(t, err)
	assert.Equal(t, `{"qty":1}`, string(e.Payload))
}

// Scenario C: multi-resource 2PC success.
func TestCoordinator_MultiResourceCommit(t *testing.T) {
	ctx := context.Background()
	orderStore := memstore.New(memstore.Options{})
	paymentStore := memstore.New(memstore.Options{})
	orderAdapter := resource.New("Order", orderStore)
	paymentAdapter := resource.New("Payment", paymentStore)

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(orderAdapter))
	require.NoError(t, session.Enlist(paymentAdapter))
	require.NoError(t, orderAdapter.StageSave("order/o1", newEntity("order/o1", `{}`)))
	require.NoError(t, paymentAdapter.StageSave("pay/p1", newEntity("pay/p1", `{}`)))

	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	exists, err := orderStore.Exists(ctx, "order/o1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = paymentStore.Exists(ctx, "pay/p1")
	require.NoError(t, err)
	assert.True(t, exists)
}

// vetoingResource fails Prepare (simulates Scenario D's injected false vote).
type vetoingResource struct {
	*resource.Adapter
}

func (v *vetoingResource) Prepare(ctx context.Context) (bool, error) {
	return false, nil
}

// Scenario D: prepare vetoes.
func TestCoordinator_PrepareVetoAbortsAllResources(t *testing.T) {
	ctx := context.Background()
	orderStore := memstore.New(memstore.Options{})
	paymentStore := memstore.New(memstore.Options{})
	orderAdapter := resource.New("Order", orderStore)
	paymentAdapter := &vetoingResource{resource.New("Payment", paymentStore)}

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(orderAdapter))
	require.NoError(t, session.Enlist(paymentAdapter))
	require.NoError(t, orderAdapter.StageSave("order/o1", newEntity("order/o1", `{}`)))
	require.NoError(t, paymentAdapter.StageDelete("pay/missing"))

	outcome, err := session.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)
	kind, ok := txnerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, txnerr.PrepareFailed, kind)

	exists, err := orderStore.Exists(ctx, "order/o1")
	require.NoError(t, err)
	assert.False(t, exists, "no resource should observe a post-state change after a vetoed prepare")
}

// Scenario E: savepoint rollback.
func TestCoordinator_SavepointRollbackThenCommit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	adapter := resource.New("Product", store)

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(adapter))

	require.NoError(t, adapter.StageSave("a", newEntity("a", `{"v":1}`)))
	require.NoError(t, session.SavePoint(ctx, "sp1"))

	require.NoError(t, adapter.StageSave("b", newEntity("b", `{"v":2}`)))
	require.NoError(t, adapter.StageDelete("a"))

	require.NoError(t, session.RollbackTo(ctx, "sp1"))
	staged := adapter.Staged()
	require.Len(t, staged, 1)
	_, ok := staged["a"]
	assert.True(t, ok)

	outcome, err := session.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome)

	existsA, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, existsA)
	existsB, err := store.Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, existsB)
}

// Scenario F: concurrent writer wins — the later committer's value
// survives and both sessions reach Committed.
func TestCoordinator_ConcurrentWritersBothCommit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	c := txn.NewCoordinator()

	session1 := c.Begin()
	adapter1 := resource.New("Product", store)
	require.NoError(t, session1.Enlist(adapter1))
	require.NoError(t, adapter1.StageSave("k", newEntity("k", `{"writer":1}`)))
	outcome1, err := session1.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome1)

	session2 := c.Begin()
	adapter2 := resource.New("Product", store)
	require.NoError(t, session2.Enlist(adapter2))
	require.NoError(t, adapter2.StageSave("k", newEntity("k", `{"writer":2}`)))
	outcome2, err := session2.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeCommitted, outcome2)

	e, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"writer":2}`, string(e.Payload))
}

// orderRecordingResource records when Rollback was called on it, relative
// to its sibling resources, without otherwise touching the wrapped store.
type orderRecordingResource struct {
	*resource.Adapter
	label string
	order *[]string
}

func (r *orderRecordingResource) Rollback(ctx context.Context) error {
	*r.order = append(*r.order, r.label)
	return r.Adapter.Rollback(ctx)
}

// Rollback must release resources in reverse enrollment order (spec.md
// §4.1, "Ordering guarantees"), mirroring stack-like resource release.
func TestSession_RollbackVisitsResourcesInReverseEnrollmentOrder(t *testing.T) {
	ctx := context.Background()
	var order []string

	c := txn.NewCoordinator()
	session := c.Begin()

	first := &orderRecordingResource{Adapter: resource.New("first", memstore.New(memstore.Options{})), label: "first", order: &order}
	second := &orderRecordingResource{Adapter: resource.New("second", memstore.New(memstore.Options{})), label: "second", order: &order}
	third := &orderRecordingResource{Adapter: resource.New("third", memstore.New(memstore.Options{})), label: "third", order: &order}

	require.NoError(t, session.Enlist(first))
	require.NoError(t, session.Enlist(second))
	require.NoError(t, session.Enlist(third))

	outcome, err := session.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

// Same ordering requirement applies to the prepare-veto abort path.
func TestSession_AbortVisitsResourcesInReverseEnrollmentOrder(t *testing.T) {
	ctx := context.Background()
	var order []string

	c := txn.NewCoordinator()
	session := c.Begin()

	first := &orderRecordingResource{Adapter: resource.New("first", memstore.New(memstore.Options{})), label: "first", order: &order}
	second := &orderRecordingResource{Adapter: resource.New("second", memstore.New(memstore.Options{})), label: "second", order: &order}
	veto := &vetoingResource{resource.New("veto", memstore.New(memstore.Options{}))}

	require.NoError(t, session.Enlist(first))
	require.NoError(t, session.Enlist(second))
	require.NoError(t, session.Enlist(veto))

	outcome, err := session.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, txn.OutcomeAborted, outcome)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestSession_EnlistAfterCommitRejected(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	adapter := resource.New("Product", store)

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(adapter))
	_, err := session.Commit(ctx)
	require.NoError(t, err)

	err = session.Enlist(resource.New("Other", memstore.New(memstore.Options{})))
	require.Error(t, err)
	kind, ok := txnerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, txnerr.InvalidState, kind)
}

func TestSession_DisposeRollsBackActiveSession(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.Options{})
	require.NoError(t, store.Save(ctx, "k", newEntity("k", `{"v":1}`)))
	require.NoError(t, store.Commit(ctx))
	adapter := resource.New("Product", store)

	c := txn.NewCoordinator()
	session := c.Begin()
	require.NoError(t, session.Enlist(adapter))
	require.NoError(t, adapter.StageSave("k", newEntity("k", `{"v":2}`)))

	require.NoError(t, session.Dispose(ctx))
	require.NoError(t, session.Dispose(ctx), "dispose must be idempotent")

	e, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(e.Payload))
}
