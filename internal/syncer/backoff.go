package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffConfig shapes the automatic re-drain schedule used while items
// remain in the queue after a pass.
type BackoffConfig struct {
	MaxAttempts   uint64
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// DefaultBackoff returns the re-drain schedule used by the monitor.
func DefaultBackoff() *BackoffConfig {
	return &BackoffConfig{
		MaxAttempts:   5,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		JitterPercent: 10,
	}
}

// createBackoff builds the go-retry strategy from the config.
func (c *BackoffConfig) createBackoff() retry.Backoff {
	backoff := retry.NewExponential(c.BaseDelay)
	backoff = retry.WithMaxRetries(c.MaxAttempts, backoff)
	backoff = retry.WithCappedDuration(c.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(c.JitterPercent, backoff)
	return backoff
}

var errItemsRemaining = errors.New("queue not empty after drain")

// DrainWithBackoff runs Drain and, while items remain and the state still
// reports online, schedules further passes with exponential backoff. A
// skipped drain (guard held elsewhere) ends the loop; so does going offline.
func (s *Syncer) DrainWithBackoff(ctx context.Context, cfg *BackoffConfig) error {
	if cfg == nil {
		cfg = DefaultBackoff()
	}

	err := retry.Do(ctx, cfg.createBackoff(), func(ctx context.Context) error {
		res, err := s.Drain(ctx)
		if err != nil {
			return err
		}
		if res.Skipped || !s.state.Online() {
			return nil
		}

		n, err := s.queue.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Debug(ctx, "items remaining after drain, backing off", "pending", n)
			return retry.RetryableError(errItemsRemaining)
		}
		return nil
	})
	if errors.Is(err, errItemsRemaining) {
		// Retry budget for this trigger is spent; the next transition or
		// manual trigger picks the queue up again.
		return nil
	}
	return err
}
