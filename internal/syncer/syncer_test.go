package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/entities"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
	"github.com/nazarialireza/invextry-offline/internal/store"

	_ "modernc.org/sqlite"
)

type call struct {
	method string
	url    string
}

// fakeExecutor records calls and fails according to respond.
type fakeExecutor struct {
	calls   []call
	respond func(method, url string) error
}

func (f *fakeExecutor) Execute(_ context.Context, method, url string, _ json.RawMessage) (json.RawMessage, error) {
	f.calls = append(f.calls, call{method: method, url: url})
	if f.respond != nil {
		if err := f.respond(method, url); err != nil {
			return nil, err
		}
	}
	return json.RawMessage(`{}`), nil
}

type fixture struct {
	syncer *Syncer
	queue  *queue.StoreRepository
	dead   *queue.StoreDeadLetters
	ents   *entities.StoreRepository
	state  *connectivity.State
	exec   *fakeExecutor
	store  *store.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	state := connectivity.NewState(true)
	q := queue.NewStoreRepository(st, state, nil)
	dl := queue.NewStoreDeadLetters(st, nil)
	ents := entities.NewStoreRepository(st, q, state, nil)
	exec := &fakeExecutor{}

	s := New(q, dl, ents, state, exec, st, logging.NewNopLogger(), Options{})
	return &fixture{syncer: s, queue: q, dead: dl, ents: ents, state: state, exec: exec, store: st}
}

func networkDown(string, string) error {
	return fmt.Errorf("%w: connection refused", models.ErrNetworkUnavailable)
}

func TestDrain_ReplaysInEnqueueOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{"name":"a"}`))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, models.EntityProduct, models.ActionUpdate, "p1", json.RawMessage(`{"name":"b"}`))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, models.EntityProduct, models.ActionDelete, "p1", nil)
	require.NoError(t, err)

	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)

	// A delete must never overtake the create that precedes it.
	require.Len(t, f.exec.calls, 3)
	assert.Equal(t, call{"POST", "/api/products"}, f.exec.calls[0])
	assert.Equal(t, call{"PUT", "/api/products/p1"}, f.exec.calls[1])
	assert.Equal(t, call{"DELETE", "/api/products/p1"}, f.exec.calls[2])

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrain_SuccessMarksRecordSynced(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Offline write, then reconnect and drain.
	f.state.SetOnline(false)
	_, err := f.ents.Save(ctx, models.EntityProduct, models.Record{ID: "p1", Fields: json.RawMessage(`{"id":"p1","name":"Widget"}`)})
	require.NoError(t, err)
	assert.Equal(t, 1, f.state.Snapshot().PendingSyncCount)

	f.state.SetOnline(true)
	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	rec, err := f.ents.Get(ctx, models.EntityProduct, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)

	status := f.state.Snapshot()
	assert.Zero(t, status.PendingSyncCount)
	require.NotNil(t, status.LastSyncTime)
}

func TestDrain_RetryableFailureIncrementsRetryCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.exec.respond = networkDown

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		res, err := f.syncer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Retried)

		items, err := f.queue.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, attempt, items[0].RetryCount)
	}
}

func TestDrain_PoisonItemEvictedAfterFourthFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.exec.respond = networkDown

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.syncer.Drain(ctx)
		require.NoError(t, err)
	}

	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evicted)

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.state.Snapshot().PendingSyncCount)

	// The loss is recorded, not silent.
	letters, err := f.dead.List(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, 4, letters[0].Item.RetryCount)
	assert.Contains(t, letters[0].Reason, "exhausted")
}

func TestDrain_RemoteRejectionDeadLettersImmediately(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.exec.respond = func(string, string) error {
		return &models.RemoteError{Status: 422, Body: `{"message":"validation failed"}`}
	}

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)

	// No retry budget spent on something the server already refused.
	assert.Len(t, f.exec.calls, 1)

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	letters, err := f.dead.List(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Zero(t, letters[0].Item.RetryCount)
}

func TestDrain_PartialProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.exec.respond = func(method, url string) error {
		if url == "/api/sales" {
			return networkDown(method, url)
		}
		return nil
	}

	_, err := f.queue.Enqueue(ctx, models.EntitySale, models.ActionCreate, "s1", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, models.EntityCustomer, models.ActionCreate, "c1", json.RawMessage(`{}`))
	require.NoError(t, err)

	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)

	// The sale failing does not stop the customer from syncing.
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, 1, res.Succeeded)
}

func TestDrain_NonReentrant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.True(t, f.state.BeginSync())
	defer f.state.EndSync()

	res, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	// Queue untouched: no calls, no retry bumps.
	assert.Empty(t, f.exec.calls)
	items, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].RetryCount)
}

func TestDrain_LocaleItemReplaysAgainstLocaleEndpoint(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, models.EntitySetting, models.ActionUpdate, models.LocaleSettingID, json.RawMessage(`{"locale":"fa"}`))
	require.NoError(t, err)

	_, err = f.syncer.Drain(ctx)
	require.NoError(t, err)

	require.Len(t, f.exec.calls, 1)
	assert.Equal(t, call{"POST", "/api/locale"}, f.exec.calls[0])
}

func TestLoadLastSync_RestoresPersistedState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.syncer.Drain(ctx)
	require.NoError(t, err)
	first := f.state.Snapshot().LastSyncTime
	require.NotNil(t, first)

	// A fresh state seeded from the store sees the same timestamp.
	state2 := connectivity.NewState(false)
	s2 := New(f.queue, f.dead, f.ents, state2, f.exec, f.store, logging.NewNopLogger(), Options{})
	require.NoError(t, s2.LoadLastSync(ctx))

	got := state2.Snapshot().LastSyncTime
	require.NotNil(t, got)
	assert.True(t, got.Equal(*first))
}

func TestDrainWithBackoff_StopsWhenQueueEmpty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, models.EntityProduct, models.ActionCreate, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	cfg := &BackoffConfig{MaxAttempts: 2, BaseDelay: 1, MaxDelay: 1, JitterPercent: 1}
	require.NoError(t, f.syncer.DrainWithBackoff(ctx, cfg))

	n, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
