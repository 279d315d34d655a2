// Package models defines the data types shared by the offline cache engine:
// cached responses, mirrored entity records, queued writes and the offline
// status snapshot exposed to the UI layer.
package models

import (
	"encoding/json"
	"time"
)

// EntityType identifies a mirrored domain collection.
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntitySale     EntityType = "sale"
	EntityPurchase EntityType = "purchase"
	EntityCustomer EntityType = "customer"
	EntitySupplier EntityType = "supplier"
	EntitySetting  EntityType = "setting"
)

// LocaleSettingID is the settings record holding the session locale. Queued
// locale switches replay against the locale endpoint rather than the
// settings collection.
const LocaleSettingID = "locale"

// Action classifies a queued write.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// SyncStatus marks whether a local record has reached the server.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
)

// CacheEntry is a memoized API response keyed by request URL.
type CacheEntry struct {
	// URL is the canonical request fingerprint.
	URL string `json:"url"`

	// Payload is the cached response body, kept opaque.
	Payload json.RawMessage `json:"payload"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTL is how long the entry stays valid after StoredAt.
	TTL time.Duration `json:"ttl"`
}

// Valid reports whether the entry is still servable at the given time.
// An expired entry is logically absent.
func (e CacheEntry) Valid(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Record is a locally mirrored domain object.
type Record struct {
	// ID is the server-assigned identifier, or a locally generated one
	// for records created while offline.
	ID string `json:"id"`

	// Type names the collection the record belongs to.
	Type EntityType `json:"type"`

	// Fields is the domain payload, kept opaque.
	Fields json.RawMessage `json:"fields"`

	// NaturalKey supports filtered local reads (name, date, status —
	// whatever suits the collection).
	NaturalKey string `json:"natural_key,omitempty"`

	// LastModified is stamped on every local save.
	LastModified time.Time `json:"last_modified"`

	// SyncStatus transitions pending -> synced only once the remote
	// write is confirmed.
	SyncStatus SyncStatus `json:"sync_status"`
}

// QueueItem is a write accepted while offline, awaiting replay.
type QueueItem struct {
	ID         string          `json:"id"`
	Type       EntityType      `json:"type"`
	Action     Action          `json:"action"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
}

// DeadLetter records a queue item that was dropped without reaching the
// server, so the loss is inspectable rather than silent.
type DeadLetter struct {
	Item      QueueItem `json:"item"`
	Reason    string    `json:"reason"`
	EvictedAt time.Time `json:"evicted_at"`
}

// Status is the offline-status snapshot consumed by the UI layer.
type Status struct {
	IsOnline         bool       `json:"is_online"`
	SyncInProgress   bool       `json:"sync_in_progress"`
	PendingSyncCount int        `json:"pending_sync_count"`
	LastSyncTime     *time.Time `json:"last_sync_time,omitempty"`
}
