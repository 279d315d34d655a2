package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the local store could not be opened or a
	// partition operation failed for a reason other than "not found".
	// Callers should degrade to network-only behavior.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrNotFound is returned for a missing key. It is not a failure of
	// the store itself.
	ErrNotFound = errors.New("record not found")

	// ErrNetworkUnavailable covers the platform offline signal and
	// transport-level connection failures. Reads fall back to cache,
	// writes fall back to the sync queue.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrSyncExhausted marks a queued item evicted after exceeding its
	// retry ceiling.
	ErrSyncExhausted = errors.New("sync retries exhausted")
)

// RemoteError is a substantive server rejection (validation, auth, …).
// The synchronizer never retries it.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected request: status %d", e.Status)
}

// IsNetworkError reports whether err is a transport-level failure that the
// cache/queue fallback paths should absorb.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}
