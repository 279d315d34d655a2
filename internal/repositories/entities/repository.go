// Package entities is the typed convenience layer over the entity
// partitions: read-through and write-through the persistent store, with
// sync-status bookkeeping and offline enqueueing.
package entities

import (
	"context"

	"github.com/nazarialireza/invextry-offline/internal/models"
)

// Repository describes the per-collection operations. Reads never fail for
// lack of network; they fail only on store errors.
type Repository interface {
	// List returns all locally stored records for the type. This is the
	// offline fallback path.
	List(ctx context.Context, entityType models.EntityType) ([]models.Record, error)

	// Get returns a single record, or models.ErrNotFound.
	Get(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error)

	// Save upserts the record, stamps lastModified, sets syncStatus from
	// the current connectivity and — only while offline — enqueues the
	// corresponding queue item. The returned record carries the stamps.
	Save(ctx context.Context, entityType models.EntityType, rec models.Record) (*models.Record, error)

	// Delete removes the record locally and, while offline, enqueues a
	// delete for replay.
	Delete(ctx context.Context, entityType models.EntityType, id string) error

	// Upsert writes the record with an explicit sync status, without
	// consulting connectivity or touching the queue. The fetch-and-populate
	// path and the synchronizer use it.
	Upsert(ctx context.Context, entityType models.EntityType, rec models.Record, status models.SyncStatus) (*models.Record, error)

	// MarkSynced flips a record pending -> synced after its remote write
	// is confirmed. Unknown ids are a no-op.
	MarkSynced(ctx context.Context, entityType models.EntityType, id string) error
}
