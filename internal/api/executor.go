// Package api is the request facade: read-through response caching for GET
// calls, queueing of writes made while offline, and entity
// fetch-and-populate helpers that keep the local mirror warm.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nazarialireza/invextry-offline/internal/models"
)

// Executor issues one remote call. Transport failures come back wrapped in
// models.ErrNetworkUnavailable; substantive rejections as
// *models.RemoteError; everything else is the decoded response body.
type Executor interface {
	Execute(ctx context.Context, method, url string, body json.RawMessage) (json.RawMessage, error)
}

// HTTPExecutor runs requests against a REST API over net/http.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor builds an executor rooted at baseURL (scheme://host).
// Relative URLs passed to Execute are resolved against it. timeout bounds
// every request; zero selects 10 seconds, matching the original transport.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExecutor) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return e.baseURL + u
}

func (e *HTTPExecutor) Execute(ctx context.Context, method, u string, body json.RawMessage) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.resolve(u), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", models.ErrNetworkUnavailable, method, u, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", models.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &models.RemoteError{Status: resp.StatusCode, Body: string(b)}
	}
	return b, nil
}

// Ping reports server reachability. Any HTTP response counts as reachable;
// only transport failures do not.
func (e *HTTPExecutor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetworkUnavailable, err)
	}
	_ = resp.Body.Close()
	return nil
}
