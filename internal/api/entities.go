package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nazarialireza/invextry-offline/internal/cache"
	"github.com/nazarialireza/invextry-offline/internal/models"
)

// collections maps entity types to their REST path segments.
var collections = map[models.EntityType]string{
	models.EntityProduct:  "products",
	models.EntitySale:     "sales",
	models.EntityPurchase: "purchases",
	models.EntityCustomer: "customers",
	models.EntitySupplier: "suppliers",
	models.EntitySetting:  "settings",
}

func (c *Client) collectionURL(entityType models.EntityType) (string, error) {
	segment, ok := collections[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return c.basePath + "/" + segment, nil
}

// fetched is the minimal shape pulled out of a remote record to key the
// local mirror. The rest of the payload stays opaque.
type fetched struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Date string      `json:"date"`
}

// FetchAll lists a collection from the server and populates the local
// mirror with every returned record (the fetch-and-populate contract). When
// the network path fails, it serves the mirror instead.
func (c *Client) FetchAll(ctx context.Context, entityType models.EntityType) ([]models.Record, bool, error) {
	url, err := c.collectionURL(entityType)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.doGet(ctx, url, RequestOptions{TTL: cache.TTLLong})
	if err != nil {
		if models.IsNetworkError(err) || !c.state.Online() {
			records, listErr := c.entities.List(ctx, entityType)
			if listErr == nil && len(records) > 0 {
				return records, true, nil
			}
		}
		return nil, false, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Payload, &raw); err != nil {
		return nil, false, fmt.Errorf("unexpected %s list payload: %w", entityType, err)
	}

	records := make([]models.Record, 0, len(raw))
	for _, item := range raw {
		var f fetched
		// Records without a readable id cannot be mirrored; keep them in
		// the response but skip the local copy.
		if err := json.Unmarshal(item, &f); err != nil || f.ID.String() == "" {
			continue
		}
		naturalKey := f.Name
		if naturalKey == "" {
			naturalKey = f.Date
		}
		rec, err := c.entities.Upsert(ctx, entityType, models.Record{
			ID:         f.ID.String(),
			Fields:     item,
			NaturalKey: naturalKey,
		}, models.SyncStatusSynced)
		if err != nil {
			return nil, false, err
		}
		records = append(records, *rec)
	}
	return records, resp.FromCache, nil
}

// Save writes a record through the mirror-and-queue rules. While online the
// remote call happens first and the mirror is stamped synced; a transport
// failure (or being offline) stores the record pending and queues it.
func (c *Client) Save(ctx context.Context, entityType models.EntityType, rec models.Record) (*models.Record, error) {
	if !c.state.Online() {
		return c.entities.Save(ctx, entityType, rec)
	}

	url, err := c.collectionURL(entityType)
	if err != nil {
		return nil, err
	}
	method := "POST"
	if rec.ID != "" {
		method, url = "PUT", url+"/"+rec.ID
	}

	payload, err := c.exec.Execute(ctx, method, url, rec.Fields)
	if err != nil {
		if models.IsNetworkError(err) {
			// The platform signal lags the transport; fall back to the
			// offline path.
			return c.entities.Save(ctx, entityType, rec)
		}
		return nil, err
	}

	// Prefer the server's echo of the record: it carries the assigned id.
	var f fetched
	if err := json.Unmarshal(payload, &f); err == nil && f.ID.String() != "" {
		rec.ID = f.ID.String()
		rec.Fields = payload
	}
	return c.entities.Upsert(ctx, entityType, rec, models.SyncStatusSynced)
}

// Delete removes a record locally and remotely, queueing the remote part
// when the network path is unavailable.
func (c *Client) Delete(ctx context.Context, entityType models.EntityType, id string) error {
	if !c.state.Online() {
		return c.entities.Delete(ctx, entityType, id)
	}

	url, err := c.collectionURL(entityType)
	if err != nil {
		return err
	}
	if _, err := c.exec.Execute(ctx, "DELETE", url+"/"+id, nil); err != nil {
		if models.IsNetworkError(err) {
			return c.entities.Delete(ctx, entityType, id)
		}
		return err
	}

	// Remote delete confirmed; Delete only queues while offline, so this
	// just drops the mirror copy.
	return c.entities.Delete(ctx, entityType, id)
}

// List serves the local mirror directly (the pure offline read path).
func (c *Client) List(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	return c.entities.List(ctx, entityType)
}
