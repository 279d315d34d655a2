package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/cache"
	"github.com/nazarialireza/invextry-offline/internal/connectivity"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/repositories/entities"
	"github.com/nazarialireza/invextry-offline/internal/repositories/queue"
)

// RequestOptions tune a single facade call.
type RequestOptions struct {
	// NoCache skips the response cache entirely.
	NoCache bool

	// TTL overrides the cache lifetime for this response. Zero selects
	// the facade default.
	TTL time.Duration

	// ForceRefresh bypasses the cached copy on the way in but still
	// stores the fresh response.
	ForceRefresh bool
}

// Response is the facade result.
type Response struct {
	Payload json.RawMessage

	// FromCache marks a payload served from the response cache.
	FromCache bool

	// Queued marks a write accepted locally for later replay; Payload is
	// empty in that case.
	Queued bool
}

// Client fronts the remote API with the offline cache and the write queue.
// GET calls read through the response cache; writes made while offline (or
// failing with a transport error) are queued for the synchronizer.
type Client struct {
	cache    *cache.ResponseCache
	entities entities.Repository
	queue    queue.Repository
	state    *connectivity.State
	exec     Executor
	log      logging.Logger

	basePath   string
	defaultTTL time.Duration
}

// NewClient wires the facade. basePath prefixes entity endpoints ("/api").
// defaultTTL is the cache lifetime used when a request does not choose one;
// zero selects cache.TTLMedium.
func NewClient(rc *cache.ResponseCache, ents entities.Repository, q queue.Repository, state *connectivity.State, exec Executor, log logging.Logger, basePath string, defaultTTL time.Duration) *Client {
	if basePath == "" {
		basePath = "/api"
	}
	if defaultTTL <= 0 {
		defaultTTL = cache.TTLMedium
	}
	return &Client{
		cache:      rc,
		entities:   ents,
		queue:      q,
		state:      state,
		exec:       exec,
		log:        log,
		basePath:   strings.TrimRight(basePath, "/"),
		defaultTTL: defaultTTL,
	}
}

// Do runs one request through the cache/queue rules. Network failures are
// absorbed whenever a cache or queue path exists; remote rejections always
// propagate.
func (c *Client) Do(ctx context.Context, method, url string, body json.RawMessage, opts RequestOptions) (*Response, error) {
	if method == "GET" {
		return c.doGet(ctx, url, opts)
	}
	return c.doWrite(ctx, method, url, body)
}

func (c *Client) doGet(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	useCache := !opts.NoCache
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if useCache && !opts.ForceRefresh {
		payload, ok, err := c.cache.Get(ctx, url)
		if err != nil {
			// Store trouble must not block the network path.
			c.log.Warn(ctx, "cache read failed, degrading to network", "url", url, "error", err)
		} else if ok {
			return &Response{Payload: payload, FromCache: true}, nil
		}
	}

	payload, err := c.exec.Execute(ctx, "GET", url, nil)
	if err == nil {
		if useCache {
			if err := c.cache.Set(ctx, url, payload, ttl); err != nil {
				c.log.Warn(ctx, "failed to cache response", "url", url, "error", err)
			}
		}
		return &Response{Payload: payload}, nil
	}

	if useCache && (models.IsNetworkError(err) || !c.state.Online()) {
		payload, ok, cacheErr := c.cache.Get(ctx, url)
		if cacheErr == nil && ok {
			return &Response{Payload: payload, FromCache: true}, nil
		}
	}
	return nil, err
}

func (c *Client) doWrite(ctx context.Context, method, url string, body json.RawMessage) (*Response, error) {
	if !c.state.Online() {
		return c.enqueueWrite(ctx, method, url, body)
	}

	payload, err := c.exec.Execute(ctx, method, url, body)
	if err == nil {
		return &Response{Payload: payload}, nil
	}
	if models.IsNetworkError(err) {
		return c.enqueueWrite(ctx, method, url, body)
	}
	return nil, err
}

func (c *Client) enqueueWrite(ctx context.Context, method, url string, body json.RawMessage) (*Response, error) {
	entityType, action, entityID, ok := c.routeWrite(method, url)
	if !ok {
		// No queue path for this endpoint; the caller sees the network
		// failure directly.
		return nil, fmt.Errorf("%w: cannot queue %s %s", models.ErrNetworkUnavailable, method, url)
	}
	if _, err := c.queue.Enqueue(ctx, entityType, action, entityID, body); err != nil {
		return nil, err
	}
	return &Response{Queued: true}, nil
}

// singulars maps REST path segments back to entity types.
var singulars = map[string]models.EntityType{
	"products":  models.EntityProduct,
	"sales":     models.EntitySale,
	"purchases": models.EntityPurchase,
	"customers": models.EntityCustomer,
	"suppliers": models.EntitySupplier,
	"settings":  models.EntitySetting,
}

// routeWrite maps a write request onto a queueable entity operation.
func (c *Client) routeWrite(method, url string) (models.EntityType, models.Action, string, bool) {
	path := strings.TrimPrefix(url, c.basePath)
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] == "locale" && method == "POST" {
		return models.EntitySetting, models.ActionUpdate, models.LocaleSettingID, true
	}

	entityType, ok := singulars[parts[0]]
	if !ok {
		return "", "", "", false
	}

	switch {
	case len(parts) == 1 && method == "POST":
		return entityType, models.ActionCreate, "", true
	case len(parts) == 2 && (method == "PUT" || method == "PATCH"):
		return entityType, models.ActionUpdate, parts[1], true
	case len(parts) == 2 && method == "DELETE":
		return entityType, models.ActionDelete, parts[1], true
	default:
		return "", "", "", false
	}
}
