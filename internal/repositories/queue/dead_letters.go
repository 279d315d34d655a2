package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/store"
)

// StoreDeadLetters persists dropped queue items in the deadLetter partition.
type StoreDeadLetters struct {
	store *store.Store
	now   func() time.Time
}

func NewStoreDeadLetters(st *store.Store, now func() time.Time) *StoreDeadLetters {
	if now == nil {
		now = time.Now
	}
	return &StoreDeadLetters{store: st, now: now}
}

func (r *StoreDeadLetters) Record(ctx context.Context, item models.QueueItem, reason string) error {
	dl := models.DeadLetter{Item: item, Reason: reason, EvictedAt: r.now()}
	b, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	return r.store.Put(ctx, store.PartitionDeadLetter, store.Row{
		Key:     item.ID,
		Payload: b,
		SortKey: dl.EvictedAt.UnixNano(),
		Tag:     string(item.Type),
	})
}

func (r *StoreDeadLetters) List(ctx context.Context) ([]models.DeadLetter, error) {
	rows, err := r.store.GetAll(ctx, store.PartitionDeadLetter)
	if err != nil {
		return nil, err
	}

	letters := make([]models.DeadLetter, 0, len(rows))
	for _, row := range rows {
		var dl models.DeadLetter
		if err := json.Unmarshal(row.Payload, &dl); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter %s: %w", row.Key, err)
		}
		letters = append(letters, dl)
	}
	return letters, nil
}
