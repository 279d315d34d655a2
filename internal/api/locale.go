package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nazarialireza/invextry-offline/internal/cache"
	"github.com/nazarialireza/invextry-offline/internal/models"
)

// LocaleInfo mirrors the locale endpoint response.
type LocaleInfo struct {
	CurrentLocale     string          `json:"current_locale"`
	AvailableLocales  []string        `json:"available_locales"`
	CurrentLocaleInfo json.RawMessage `json:"current_locale_info"`
}

// GetLocale reads the session locale through the normal caching rules.
func (c *Client) GetLocale(ctx context.Context) (*LocaleInfo, bool, error) {
	resp, err := c.doGet(ctx, c.basePath+"/locale", RequestOptions{TTL: cache.TTLLong})
	if err != nil {
		return nil, false, err
	}

	var info LocaleInfo
	if err := json.Unmarshal(resp.Payload, &info); err != nil {
		return nil, false, fmt.Errorf("unexpected locale payload: %w", err)
	}
	return &info, resp.FromCache, nil
}

// SetLocale switches the session locale. Offline the switch is queued like
// any other write and mirrored into the settings partition so local readers
// see the chosen locale immediately.
func (c *Client) SetLocale(ctx context.Context, locale string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"locale": locale})
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, "POST", c.basePath+"/locale", body, RequestOptions{})
	if err != nil {
		return nil, err
	}

	status := models.SyncStatusSynced
	if resp.Queued {
		status = models.SyncStatusPending
	}
	_, err = c.entities.Upsert(ctx, models.EntitySetting, models.Record{
		ID:     models.LocaleSettingID,
		Fields: body,
	}, status)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
