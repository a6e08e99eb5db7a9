// Package priceclient polls the Hypixel bazaar product endpoint and caches
// its quick-status prices for the bazaar window protocols (spec.md §6). The
// price-host URL is stored on the Client but never fetched.
package priceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductQuote is a single bazaar product's current buy/sell prices.
type ProductQuote struct {
	ProductID string
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
}

// Client polls the Hypixel bazaar endpoint on a fixed interval and caches
// the latest quotes, following the teacher's cmc.Client poll-and-cache shape
// (internal/cmc/client.go) generalized from a single BTC price to a quote
// map keyed by product ID.
type Client struct {
	httpClient    *http.Client
	priceHostURL  string
	hypixelAPIURL string

	mu     sync.RWMutex
	quotes map[string]ProductQuote

	stopCh chan struct{}
}

// New constructs a Client pointed at the given base URLs.
func New(priceHostURL, hypixelAPIURL string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		priceHostURL:  priceHostURL,
		hypixelAPIURL: hypixelAPIURL,
		quotes:        make(map[string]ProductQuote),
		stopCh:        make(chan struct{}),
	}
}

// Start begins polling at the given interval until ctx is cancelled.
func (c *Client) Start(ctx context.Context, interval time.Duration) {
	c.refresh(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.refresh(ctx)
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop ends the polling goroutine.
func (c *Client) Stop() {
	close(c.stopCh)
}

// Quote returns the last cached quote for a product, if any.
func (c *Client) Quote(productID string) (ProductQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[productID]
	return q, ok
}

type bazaarProductsResponse struct {
	Success  bool `json:"success"`
	Products map[string]struct {
		QuickStatus struct {
			BuyPrice  float64 `json:"buyPrice"`
			SellPrice float64 `json:"sellPrice"`
		} `json:"quick_status"`
	} `json:"products"`
}

func (c *Client) refresh(ctx context.Context) {
	url := fmt.Sprintf("%s/skyblock/bazaar", c.hypixelAPIURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debug().Err(err).Msg("priceclient request build failed")
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("priceclient fetch failed")
		return
	}
	defer resp.Body.Close()

	var data bazaarProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Debug().Err(err).Msg("priceclient parse failed")
		return
	}
	if !data.Success {
		return
	}

	c.mu.Lock()
	for id, p := range data.Products {
		c.quotes[id] = ProductQuote{
			ProductID: id,
			BuyPrice:  decimal.NewFromFloat(p.QuickStatus.BuyPrice),
			SellPrice: decimal.NewFromFloat(p.QuickStatus.SellPrice),
		}
	}
	c.mu.Unlock()
}
