// Package connectivity tracks online/offline transitions and owns the
// process-wide offline status shared by the repositories, the synchronizer
// and the UI layer. The state is an explicitly constructed object passed to
// its dependents, never a package-level singleton.
package connectivity

import (
	"sync"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/models"
)

// State is the mutable connectivity snapshot. All access goes through its
// methods; the mutex substitutes for the single-threaded assumption of the
// original runtime.
type State struct {
	mu             sync.Mutex
	online         bool
	syncInProgress bool
	pending        int
	lastSync       *time.Time
}

// NewState returns a State with the given initial online signal.
func NewState(online bool) *State {
	return &State{online: online}
}

// Online reports the current online flag.
func (s *State) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips the online flag and reports whether it changed.
func (s *State) SetOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.online != online
	s.online = online
	return changed
}

// BeginSync attempts to take the non-reentrant drain guard. It returns false
// when a drain is already running, in which case the caller must not drain.
func (s *State) BeginSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncInProgress {
		return false
	}
	s.syncInProgress = true
	return true
}

// EndSync releases the drain guard.
func (s *State) EndSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncInProgress = false
}

// SetPending records the current queue depth.
func (s *State) SetPending(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = n
}

// SetLastSync records the completion time of the latest drain.
func (s *State) SetLastSync(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = &t
}

// Snapshot returns the status for UI consumption. Always synchronous.
func (s *State) Snapshot() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.Status{
		IsOnline:         s.online,
		SyncInProgress:   s.syncInProgress,
		PendingSyncCount: s.pending,
	}
	if s.lastSync != nil {
		t := *s.lastSync
		st.LastSyncTime = &t
	}
	return st
}
