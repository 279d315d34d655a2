package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
	"github.com/nazarialireza/invextry-offline/internal/store"
)

// partitions maps entity types to their store partitions.
var partitions = map[models.EntityType]string{
	models.EntityProduct:  store.PartitionProducts,
	models.EntitySale:     store.PartitionSales,
	models.EntityPurchase: store.PartitionPurchases,
	models.EntityCustomer: store.PartitionCustomers,
	models.EntitySupplier: store.PartitionSuppliers,
	models.EntitySetting:  store.PartitionSettings,
}

// StoreRepository implements Repository over the persistent store.
type StoreRepository struct {
	store *store.Store
	queue queue.Repository
	state *connectivity.State
	now   func() time.Time
}

// NewStoreRepository wires the repository to its store, queue and shared
// connectivity state. now defaults to time.Now.
func NewStoreRepository(st *store.Store, q queue.Repository, state *connectivity.State, now func() time.Time) *StoreRepository {
	if now == nil {
		now = time.Now
	}
	return &StoreRepository{store: st, queue: q, state: state, now: now}
}

func partitionFor(entityType models.EntityType) (string, error) {
	p, ok := partitions[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return p, nil
}

func (r *StoreRepository) List(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	partition, err := partitionFor(entityType)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.GetAll(ctx, partition)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		var rec models.Record
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %s: %w", entityType, row.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *StoreRepository) Get(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error) {
	partition, err := partitionFor(entityType)
	if err != nil {
		return nil, err
	}

	row, err := r.store.Get(ctx, partition, id)
	if err != nil {
		return nil, err
	}

	var rec models.Record
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s record %s: %w", entityType, id, err)
	}
	return &rec, nil
}

func (r *StoreRepository) Save(ctx context.Context, entityType models.EntityType, rec models.Record) (*models.Record, error) {
	action := models.ActionUpdate
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		action = models.ActionCreate
	} else if _, err := r.Get(ctx, entityType, rec.ID); errors.Is(err, models.ErrNotFound) {
		action = models.ActionCreate
	}

	online := r.state != nil && r.state.Online()
	status := models.SyncStatusSynced
	if !online {
		status = models.SyncStatusPending
	}

	saved, err := r.Upsert(ctx, entityType, rec, status)
	if err != nil {
		return nil, err
	}

	if !online {
		if _, err := r.queue.Enqueue(ctx, entityType, action, saved.ID, saved.Fields); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

func (r *StoreRepository) Delete(ctx context.Context, entityType models.EntityType, id string) error {
	partition, err := partitionFor(entityType)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, partition, id); err != nil {
		return err
	}

	if r.state != nil && !r.state.Online() {
		if _, err := r.queue.Enqueue(ctx, entityType, models.ActionDelete, id, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *StoreRepository) Upsert(ctx context.Context, entityType models.EntityType, rec models.Record, status models.SyncStatus) (*models.Record, error) {
	partition, err := partitionFor(entityType)
	if err != nil {
		return nil, err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Type = entityType
	rec.LastModified = r.now()
	rec.SyncStatus = status

	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", entityType, err)
	}

	err = r.store.Put(ctx, partition, store.Row{
		Key:     rec.ID,
		Payload: b,
		SortKey: rec.LastModified.UnixMilli(),
		Tag:     rec.NaturalKey,
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *StoreRepository) MarkSynced(ctx context.Context, entityType models.EntityType, id string) error {
	rec, err := r.Get(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.SyncStatus == models.SyncStatusSynced {
		return nil
	}
	_, err = r.Upsert(ctx, entityType, *rec, models.SyncStatusSynced)
	return err
}
