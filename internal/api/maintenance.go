package api

import (
	"context"

	"github.com/nazarialireza/invextry-offline/internal/store"
)

// Maintenance groups the housekeeping operations the UI exposes.
type Maintenance struct {
	store *store.Store
}

func NewMaintenance(st *store.Store) *Maintenance {
	return &Maintenance{store: st}
}

// ClearOfflineData wipes every partition, including the queue and the dead
// letters. Anything pending is lost; callers are expected to confirm first.
func (m *Maintenance) ClearOfflineData(ctx context.Context) error {
	return m.store.ClearAll(ctx)
}
