// Package syncer drains the write queue against the remote API once
// connectivity is confirmed: FIFO replay, bounded retry, poison-item
// eviction into the dead-letter partition.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/entities"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
	"github.com/nazarialireza/invextry-offline/internal/store"
)

// Executor issues a single remote call. Implementations report transport
// failures as models.ErrNetworkUnavailable and substantive server rejections
// as *models.RemoteError; timeout handling belongs to the transport.
type Executor interface {
	Execute(ctx context.Context, method, url string, body json.RawMessage) (json.RawMessage, error)
}

// DefaultMaxRetries is the retry ceiling: an item is evicted once its
// retryCount exceeds this value.
const DefaultMaxRetries = 3

// lastSyncKey is the settings row holding the persisted last-sync time.
const lastSyncKey = "last_sync"

// Options tune the syncer. Zero values select the defaults.
type Options struct {
	// MaxRetries is the retry ceiling (default DefaultMaxRetries).
	MaxRetries int

	// BasePath prefixes entity endpoints, e.g. "/api".
	BasePath string

	// Now injects a clock for tests.
	Now func() time.Time
}

// Result summarizes one drain pass.
type Result struct {
	// Skipped is true when another drain held the guard and this call
	// was a no-op.
	Skipped bool

	Processed int
	Succeeded int
	Retried   int
	Evicted   int
	Rejected  int
}

// Syncer replays queued writes. Construct with New; all collaborators are
// injected explicitly.
type Syncer struct {
	queue    queue.Repository
	dead     queue.DeadLetters
	entities entities.Repository
	state    *connectivity.State
	exec     Executor
	store    *store.Store
	log      logging.Logger

	maxRetries int
	basePath   string
	now        func() time.Time
}

func New(q queue.Repository, dl queue.DeadLetters, ents entities.Repository, state *connectivity.State, exec Executor, st *store.Store, log logging.Logger, opts Options) *Syncer {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BasePath == "" {
		opts.BasePath = "/api"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{
		queue:      q,
		dead:       dl,
		entities:   ents,
		state:      state,
		exec:       exec,
		store:      st,
		log:        log,
		maxRetries: opts.MaxRetries,
		basePath:   opts.BasePath,
		now:        opts.Now,
	}
}

// collections maps entity types to their REST path segments.
var collections = map[models.EntityType]string{
	models.EntityProduct:  "products",
	models.EntitySale:     "sales",
	models.EntityPurchase: "purchases",
	models.EntityCustomer: "customers",
	models.EntitySupplier: "suppliers",
	models.EntitySetting:  "settings",
}

// Endpoint resolves the remote call for a queued item. Locale switches are
// the one non-collection write: they replay against POST /locale per the
// locale endpoint contract.
func (s *Syncer) Endpoint(item models.QueueItem) (method, url string, err error) {
	if item.Type == models.EntitySetting && item.EntityID == models.LocaleSettingID {
		return "POST", s.basePath + "/locale", nil
	}
	segment, ok := collections[item.Type]
	if !ok {
		return "", "", fmt.Errorf("no endpoint for entity type %q", item.Type)
	}
	base := s.basePath + "/" + segment
	switch item.Action {
	case models.ActionCreate:
		return "POST", base, nil
	case models.ActionUpdate:
		return "PUT", base + "/" + item.EntityID, nil
	case models.ActionDelete:
		return "DELETE", base + "/" + item.EntityID, nil
	default:
		return "", "", fmt.Errorf("unknown action %q", item.Action)
	}
}

// Drain processes the queue in enqueue order. It is non-reentrant: when a
// drain is already running the call is a no-op (Result.Skipped). A failure
// on one item never aborts the rest; partial progress is the normal case.
func (s *Syncer) Drain(ctx context.Context) (Result, error) {
	if !s.state.BeginSync() {
		return Result{Skipped: true}, nil
	}
	defer s.state.EndSync()

	items, err := s.queue.List(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		res.Processed++
		s.replay(ctx, item, &res)
	}

	s.finish(ctx)

	s.log.Info(ctx, "drain finished",
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"retried", res.Retried,
		"evicted", res.Evicted,
		"rejected", res.Rejected,
	)
	return res, nil
}

func (s *Syncer) replay(ctx context.Context, item models.QueueItem, res *Result) {
	method, url, err := s.Endpoint(item)
	if err != nil {
		// Unroutable items can never succeed; dead-letter immediately.
		s.evict(ctx, item, err.Error())
		res.Rejected++
		return
	}

	_, err = s.exec.Execute(ctx, method, url, item.Payload)
	if err == nil {
		if err := s.queue.Delete(ctx, item.ID); err != nil {
			s.log.Error(ctx, "failed to remove replayed item", "id", item.ID, "error", err)
			return
		}
		if item.Action != models.ActionDelete {
			if err := s.entities.MarkSynced(ctx, item.Type, item.EntityID); err != nil {
				s.log.Warn(ctx, "failed to mark record synced", "id", item.EntityID, "error", err)
			}
		}
		res.Succeeded++
		return
	}

	var remote *models.RemoteError
	if errors.As(err, &remote) {
		// The server executed the request and rejected it. Retrying
		// cannot help, so it goes straight to the dead letters.
		s.evict(ctx, item, remote.Error())
		res.Rejected++
		return
	}

	item.RetryCount++
	if item.RetryCount > s.maxRetries {
		s.evict(ctx, item, fmt.Sprintf("%v after %d attempts: %v", models.ErrSyncExhausted, item.RetryCount, err))
		res.Evicted++
		return
	}

	if err := s.queue.Update(ctx, item); err != nil {
		s.log.Error(ctx, "failed to persist retry count", "id", item.ID, "error", err)
		return
	}
	res.Retried++
}

func (s *Syncer) evict(ctx context.Context, item models.QueueItem, reason string) {
	if err := s.dead.Record(ctx, item, reason); err != nil {
		s.log.Error(ctx, "failed to record dead letter", "id", item.ID, "error", err)
	}
	if err := s.queue.Delete(ctx, item.ID); err != nil {
		s.log.Error(ctx, "failed to evict item", "id", item.ID, "error", err)
	}
	s.log.Warn(ctx, "dropped queued write", "id", item.ID, "entity", item.Type, "action", item.Action, "reason", reason)
}

// finish stamps and persists the last-sync time and refreshes the pending
// count.
func (s *Syncer) finish(ctx context.Context) {
	now := s.now()
	s.state.SetLastSync(now)

	if n, err := s.queue.Count(ctx); err == nil {
		s.state.SetPending(n)
	}

	b, err := json.Marshal(now)
	if err != nil {
		return
	}
	err = s.store.Put(ctx, store.PartitionSettings, store.Row{
		Key:     lastSyncKey,
		Payload: b,
		SortKey: now.UnixMilli(),
	})
	if err != nil {
		s.log.Warn(ctx, "failed to persist last sync time", "error", err)
	}
}

// LoadLastSync seeds the shared state from the persisted last-sync time and
// the current queue depth. Called once at startup.
func (s *Syncer) LoadLastSync(ctx context.Context) error {
	if n, err := s.queue.Count(ctx); err == nil {
		s.state.SetPending(n)
	}

	row, err := s.store.Get(ctx, store.PartitionSettings, lastSyncKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	var t time.Time
	if err := json.Unmarshal(row.Payload, &t); err != nil {
		return fmt.Errorf("failed to decode last sync time: %w", err)
	}
	s.state.SetLastSync(t)
	return nil
}
