// Package queue persists writes accepted while offline until the
// synchronizer replays them against the server.
package queue

import (
	"context"
	"encoding/json"

	"github.com/nazarialireza/invextry-offline/internal/models"
)

// Repository describes the sync-queue operations used by the repositories
// and the synchronizer. Order is FIFO by enqueue time.
type Repository interface {
	// Enqueue appends a new item with retryCount = 0. Local-only; it
	// never depends on the network.
	Enqueue(ctx context.Context, entityType models.EntityType, action models.Action, entityID string, payload json.RawMessage) (*models.QueueItem, error)

	// List returns all items in enqueue order.
	List(ctx context.Context) ([]models.QueueItem, error)

	// Update persists a mutated item (retry bumps) in place.
	Update(ctx context.Context, item models.QueueItem) error

	// Delete removes the item. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// Count returns the current queue depth.
	Count(ctx context.Context) (int, error)
}

// DeadLetters records items dropped without a server effect, so eviction is
// observable instead of silent data loss.
type DeadLetters interface {
	Record(ctx context.Context, item models.QueueItem, reason string) error
	List(ctx context.Context) ([]models.DeadLetter, error)
}
