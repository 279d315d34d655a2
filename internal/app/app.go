// Package app wires the engine together: store, cache, repositories, queue,
// synchronizer, connectivity monitor and the API facade. Everything is
// constructed explicitly and passed by reference; lifecycle belongs to the
// entry point, not to package initialization.
package app

import (
	"context"

	_ "modernc.org/sqlite"

	"github.com/nazarialireza/invextry-offline/internal/api"
	"github.com/nazarialireza/invextry-offline/internal/cache"
	"github.com/nazarialireza/invextry-offline/internal/config"
	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/entities"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
	"github.com/nazarialireza/invextry-offline/internal/store"
	"github.com/nazarialireza/invextry-offline/internal/syncer"
)

// App owns the wired engine.
type App struct {
	cfg   *config.Config
	log   logging.Logger
	store *store.Store
	state *connectivity.State

	Cache       *cache.ResponseCache
	Entities    entities.Repository
	Queue       queue.Repository
	DeadLetters queue.DeadLetters
	Syncer      *syncer.Syncer
	Monitor     *connectivity.Monitor
	Client      *api.Client
	Maintenance *api.Maintenance

	probe *connectivity.ProbeSource
}

// New builds the engine. A store that cannot be opened is fatal here; a
// caller wanting network-only degradation can construct the facade without
// the App wrapper.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}

	// Offline until the first probe says otherwise.
	state := connectivity.NewState(false)

	q := queue.NewStoreRepository(st, state, nil)
	dl := queue.NewStoreDeadLetters(st, nil)
	ents := entities.NewStoreRepository(st, q, state, nil)
	rc := cache.New(st, nil, log)

	exec := api.NewHTTPExecutor(cfg.ServerBaseURL, cfg.RequestTimeout)

	sync := syncer.New(q, dl, ents, state, exec, st, log, syncer.Options{
		MaxRetries: cfg.MaxSyncRetries,
		BasePath:   cfg.APIBasePath,
	})
	if err := sync.LoadLastSync(ctx); err != nil {
		log.Warn(ctx, "failed to load persisted sync status", "error", err)
	}

	probe := connectivity.NewProbeSource(exec, cfg.OnlineCheckInterval, cfg.RequestTimeout)

	trigger := func(ctx context.Context) {
		go func() {
			if err := sync.DrainWithBackoff(ctx, nil); err != nil {
				log.Error(ctx, "drain failed", "error", err)
			}
		}()
	}
	mon := connectivity.NewMonitor(state, probe, trigger, log)

	client := api.NewClient(rc, ents, q, state, exec, log, cfg.APIBasePath, cfg.DefaultCacheTTL)

	return &App{
		cfg:         cfg,
		log:         log,
		store:       st,
		state:       state,
		Cache:       rc,
		Entities:    ents,
		Queue:       q,
		DeadLetters: dl,
		Syncer:      sync,
		Monitor:     mon,
		Client:      client,
		Maintenance: api.NewMaintenance(st),
		probe:       probe,
	}, nil
}

// Run starts the probe watcher and the monitor and blocks until ctx is
// canceled.
func (a *App) Run(ctx context.Context) error {
	if n, err := a.Cache.PurgeExpired(ctx); err == nil && n > 0 {
		a.log.Info(ctx, "purged expired cache entries", "count", n)
	}

	a.Monitor.Start(ctx)
	go a.probe.Run(ctx)

	<-ctx.Done()
	return nil
}

// Status exposes the offline snapshot for callers embedding the App.
func (a *App) Status() models.Status {
	return a.Monitor.Status()
}

// Close tears the engine down: unsubscribes the monitor, stops the probe
// and closes the store.
func (a *App) Close() error {
	a.probe.Close()
	a.Monitor.Close()
	return a.store.Close()
}
