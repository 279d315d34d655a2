package entities

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
	"github.com/nazarialireza/invextry-offline/internal/store"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T, online bool) (*StoreRepository, *queue.StoreRepository, *connectivity.State) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	state := connectivity.NewState(online)
	q := queue.NewStoreRepository(st, state, nil)
	return NewStoreRepository(st, q, state, nil), q, state
}

func TestSave_OnlineStampsSyncedWithoutQueueing(t *testing.T) {
	r, q, _ := setupRepo(t, true)
	ctx := context.Background()

	saved, err := r.Save(ctx, models.EntityProduct, models.Record{
		ID:     "p1",
		Fields: json.RawMessage(`{"id":"p1","name":"Widget"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, saved.SyncStatus)
	assert.False(t, saved.LastModified.IsZero())

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_OfflineStampsPendingAndQueuesCreate(t *testing.T) {
	r, q, _ := setupRepo(t, false)
	ctx := context.Background()

	saved, err := r.Save(ctx, models.EntityProduct, models.Record{
		ID:     "p1",
		Fields: json.RawMessage(`{"id":"p1","name":"Widget"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, saved.SyncStatus)

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.EntityProduct, items[0].Type)
	assert.Equal(t, models.ActionCreate, items[0].Action)
	assert.Equal(t, "p1", items[0].EntityID)
}

func TestSave_OfflineExistingRecordQueuesUpdate(t *testing.T) {
	r, q, _ := setupRepo(t, false)
	ctx := context.Background()

	_, err := r.Upsert(ctx, models.EntityCustomer, models.Record{
		ID:     "c1",
		Fields: json.RawMessage(`{"name":"Ali"}`),
	}, models.SyncStatusSynced)
	require.NoError(t, err)

	_, err = r.Save(ctx, models.EntityCustomer, models.Record{
		ID:     "c1",
		Fields: json.RawMessage(`{"name":"Ali Reza"}`),
	})
	require.NoError(t, err)

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ActionUpdate, items[0].Action)
}

func TestSave_GeneratesLocalIDForNewRecords(t *testing.T) {
	r, _, _ := setupRepo(t, false)

	saved, err := r.Save(context.Background(), models.EntitySale, models.Record{
		Fields: json.RawMessage(`{"total":10}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestSaveThenList_RoundTrip(t *testing.T) {
	r, _, _ := setupRepo(t, true)
	ctx := context.Background()

	fields := json.RawMessage(`{"id":"p1","name":"Widget"}`)
	_, err := r.Save(ctx, models.EntityProduct, models.Record{ID: "p1", Fields: fields, NaturalKey: "Widget"})
	require.NoError(t, err)

	records, err := r.List(ctx, models.EntityProduct)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].ID)
	assert.JSONEq(t, string(fields), string(records[0].Fields))
	assert.Equal(t, models.SyncStatusSynced, records[0].SyncStatus)
}

func TestList_UnknownTypeEmptyStore(t *testing.T) {
	r, _, _ := setupRepo(t, true)

	records, err := r.List(context.Background(), models.EntityPurchase)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = r.List(context.Background(), models.EntityType("invoice"))
	require.Error(t, err)
}

func TestDelete_OfflineQueuesDelete(t *testing.T) {
	r, q, _ := setupRepo(t, false)
	ctx := context.Background()

	_, err := r.Upsert(ctx, models.EntitySupplier, models.Record{ID: "s1", Fields: json.RawMessage(`{}`)}, models.SyncStatusSynced)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, models.EntitySupplier, "s1"))

	_, err = r.Get(ctx, models.EntitySupplier, "s1")
	require.ErrorIs(t, err, models.ErrNotFound)

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ActionDelete, items[0].Action)
}

func TestMarkSynced(t *testing.T) {
	r, _, _ := setupRepo(t, false)
	ctx := context.Background()

	_, err := r.Save(ctx, models.EntityProduct, models.Record{ID: "p1", Fields: json.RawMessage(`{}`)})
	require.NoError(t, err)

	require.NoError(t, r.MarkSynced(ctx, models.EntityProduct, "p1"))

	rec, err := r.Get(ctx, models.EntityProduct, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)

	// Unknown id is a no-op.
	require.NoError(t, r.MarkSynced(ctx, models.EntityProduct, "ghost"))
}
