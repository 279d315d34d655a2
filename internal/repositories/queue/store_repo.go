package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/store"
)

// StoreRepository implements Repository on the syncQueue partition. It keeps
// the shared pending count in step with the queue depth.
type StoreRepository struct {
	store *store.Store
	state *connectivity.State
	now   func() time.Time
}

// NewStoreRepository returns a queue repository over st. state may be nil
// when no status tracking is wanted (tests). now defaults to time.Now.
func NewStoreRepository(st *store.Store, state *connectivity.State, now func() time.Time) *StoreRepository {
	if now == nil {
		now = time.Now
	}
	return &StoreRepository{store: st, state: state, now: now}
}

func (r *StoreRepository) Enqueue(ctx context.Context, entityType models.EntityType, action models.Action, entityID string, payload json.RawMessage) (*models.QueueItem, error) {
	item := models.QueueItem{
		ID:         uuid.NewString(),
		Type:       entityType,
		Action:     action,
		EntityID:   entityID,
		Payload:    payload,
		EnqueuedAt: r.now(),
		RetryCount: 0,
	}

	if err := r.put(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s: %w", action, entityType, err)
	}
	r.refreshPending(ctx)
	return &item, nil
}

func (r *StoreRepository) put(ctx context.Context, item models.QueueItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode queue item: %w", err)
	}
	return r.store.Put(ctx, store.PartitionSyncQueue, store.Row{
		Key:     item.ID,
		Payload: b,
		SortKey: item.EnqueuedAt.UnixNano(),
		Tag:     string(item.Type),
	})
}

func (r *StoreRepository) List(ctx context.Context) ([]models.QueueItem, error) {
	rows, err := r.store.GetAll(ctx, store.PartitionSyncQueue)
	if err != nil {
		return nil, err
	}

	items := make([]models.QueueItem, 0, len(rows))
	for _, row := range rows {
		var item models.QueueItem
		if err := json.Unmarshal(row.Payload, &item); err != nil {
			return nil, fmt.Errorf("failed to decode queue item %s: %w", row.Key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *StoreRepository) Update(ctx context.Context, item models.QueueItem) error {
	// The upsert keeps the row's original rowid, so a retry bump does not
	// move the item out of FIFO position.
	return r.put(ctx, item)
}

func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.PartitionSyncQueue, id); err != nil {
		return err
	}
	r.refreshPending(ctx)
	return nil
}

func (r *StoreRepository) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx, store.PartitionSyncQueue)
}

func (r *StoreRepository) refreshPending(ctx context.Context) {
	if r.state == nil {
		return
	}
	if n, err := r.Count(ctx); err == nil {
		r.state.SetPending(n)
	}
}
