// Package webhook posts outbound report events to an operator-configured
// HTTP endpoint. This is a thin external-collaborator boundary by design
// (spec.md Non-goals: "a full dashboard/reporting backend is out of scope");
// it only ships whatever the caller already built, with no retry queue or
// delivery guarantees beyond a single attempt with timeout.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client posts JSON payloads to a single configured URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// New constructs a Client. An empty url is valid and makes every Post a
// no-op, since the webhook is optional (spec.md §6).
func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Post ships v as a JSON body; failures are logged, not returned, since a
// dropped report must never stall the orchestrator (spec.md §5 "must not
// block the event loop").
func (c *Client) Post(ctx context.Context, v any) {
	if c.url == "" {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("webhook marshal failed")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("webhook request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("webhook post failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("webhook rejected")
	}
}
