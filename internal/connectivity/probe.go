package connectivity

import (
	"context"
	"sync"
	"time"
)

// Pinger checks server reachability. The API executor's health probe
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeSource synthesizes transition events for hosts without a push
// network signal: it probes on a ticker and emits an event only when the
// reachability flips. Emission on change only keeps the monitor's
// transition semantics intact.
type ProbeSource struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration

	mu   sync.Mutex
	subs map[chan Event]struct{}

	stop chan struct{}
	once sync.Once
}

// NewProbeSource probes pinger every interval. Each probe is bounded by
// timeout.
func NewProbeSource(pinger Pinger, interval, timeout time.Duration) *ProbeSource {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProbeSource{
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		subs:     make(map[chan Event]struct{}),
		stop:     make(chan struct{}),
	}
}

// Subscribe registers a listener. The cancel function removes it and closes
// the channel.
func (p *ProbeSource) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Run probes until ctx is canceled or Close is called. The first probe
// resolves the initial state; only flips after that are published.
func (p *ProbeSource) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	online, known := false, false
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.pinger.Ping(probeCtx)
		cancel()

		nowOnline := err == nil
		if known && nowOnline == online {
			return
		}
		online, known = nowOnline, true
		p.publish(Event{Online: nowOnline, At: time.Now()})
	}

	probe()
	for {
		select {
		case <-ticker.C:
			probe()
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *ProbeSource) publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop the older event in favor of the
			// latest transition.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// Close stops Run.
func (p *ProbeSource) Close() {
	p.once.Do(func() { close(p.stop) })
}
