// Package cache memoizes GET-style API responses keyed by request URL, with
// a time-to-live per entry. Expired entries are indistinguishable from
// absent ones and are swept opportunistically.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/store"
)

// TTL classes. Convention only: any positive duration is accepted.
const (
	TTLShort    = 5 * time.Minute
	TTLMedium   = 30 * time.Minute
	TTLLong     = 24 * time.Hour
	TTLExtended = 7 * 24 * time.Hour
)

// ResponseCache serves cached payloads from the apiCache partition.
type ResponseCache struct {
	store *store.Store
	now   func() time.Time
	log   logging.Logger
}

// New returns a ResponseCache over st. now may be nil, defaulting to
// time.Now (tests inject a fake clock).
func New(st *store.Store, now func() time.Time, log logging.Logger) *ResponseCache {
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{store: st, now: now, log: log}
}

// stored is the persisted shape of a cache entry. The URL lives in the row
// key and storedAt in the row sort key.
type stored struct {
	Payload json.RawMessage `json:"payload"`
	TTLMs   int64           `json:"ttl_ms"`
}

// Get returns the cached payload for url when a valid entry exists. A miss
// (never cached, or expired) yields ok=false; the two cases are not
// distinguished.
func (c *ResponseCache) Get(ctx context.Context, url string) (json.RawMessage, bool, error) {
	row, err := c.store.Get(ctx, store.PartitionAPICache, url)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var s stored
	if err := json.Unmarshal(row.Payload, &s); err != nil {
		// Corrupt entry: treat as a miss and drop it.
		c.log.Warn(ctx, "dropping unreadable cache entry", "url", url, "error", err)
		_ = c.store.Delete(ctx, store.PartitionAPICache, url)
		return nil, false, nil
	}

	entry := models.CacheEntry{
		URL:      url,
		Payload:  s.Payload,
		StoredAt: time.UnixMilli(row.SortKey),
		TTL:      time.Duration(s.TTLMs) * time.Millisecond,
	}
	if !entry.Valid(c.now()) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

// Set overwrites any existing entry for url.
func (c *ResponseCache) Set(ctx context.Context, url string, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	b, err := json.Marshal(stored{Payload: payload, TTLMs: ttl.Milliseconds()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return c.store.Put(ctx, store.PartitionAPICache, store.Row{
		Key:     url,
		Payload: b,
		SortKey: c.now().UnixMilli(),
	})
}

// PurgeExpired deletes every entry that is no longer valid and returns how
// many were removed. Idempotent; safe to run concurrently with reads.
func (c *ResponseCache) PurgeExpired(ctx context.Context) (int, error) {
	now := c.now()
	return c.store.DeleteWhere(ctx, store.PartitionAPICache, func(r store.Row) bool {
		var s stored
		if err := json.Unmarshal(r.Payload, &s); err != nil {
			return false
		}
		e := models.CacheEntry{
			StoredAt: time.UnixMilli(r.SortKey),
			TTL:      time.Duration(s.TTLMs) * time.Millisecond,
		}
		return e.Valid(now)
	})
}
