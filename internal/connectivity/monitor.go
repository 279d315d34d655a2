package connectivity

import (
	"context"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
)

// Event is a network-presence transition.
type Event struct {
	Online bool
	At     time.Time
}

// Source is a typed event source for network transitions. Subscribe returns
// the event channel and a cancel function; the monitor unsubscribes on
// Close to avoid leaking the subscription.
type Source interface {
	Subscribe() (<-chan Event, func())
}

// Monitor is the source of truth for online/offline transitions. On a
// transition to online it flips the flag and triggers a drain; on a
// transition to offline it only flips the flag and lets in-flight work fail
// into its own fallbacks.
type Monitor struct {
	state   *State
	source  Source
	trigger func(ctx context.Context)
	log     logging.Logger

	cancel func()
	done   chan struct{}
}

// NewMonitor wires the monitor. trigger is invoked (on the monitor's
// goroutine) whenever a transition to online happens.
func NewMonitor(state *State, source Source, trigger func(ctx context.Context), log logging.Logger) *Monitor {
	return &Monitor{
		state:   state,
		source:  source,
		trigger: trigger,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start subscribes to the source and consumes transitions until ctx is
// canceled or Close is called.
func (m *Monitor) Start(ctx context.Context) {
	events, cancel := m.source.Subscribe()
	m.cancel = cancel

	go func() {
		defer close(m.done)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				m.handle(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Monitor) handle(ctx context.Context, ev Event) {
	if !m.state.SetOnline(ev.Online) {
		return
	}
	if ev.Online {
		m.log.Info(ctx, "back online, starting sync")
		if m.trigger != nil {
			m.trigger(ctx)
		}
	} else {
		m.log.Info(ctx, "gone offline, serving from local cache")
	}
}

// TriggerSync requests a manual drain regardless of transitions.
func (m *Monitor) TriggerSync(ctx context.Context) {
	if m.trigger != nil {
		m.trigger(ctx)
	}
}

// Status returns the current snapshot for UI consumption. Synchronous and
// non-blocking.
func (m *Monitor) Status() models.Status {
	return m.state.Snapshot()
}

// Close unsubscribes from the source and waits for the consumer goroutine.
func (m *Monitor) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}
