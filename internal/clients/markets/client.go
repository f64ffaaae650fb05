// Package markets provides an HTTP client for the prediction-markets
// Gamma API, rate-limited to the configured inter-request delay.
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/market"
)

const defaultBaseURL = "https://gamma-api.polymarket.com"

// Client is the markets package's GammaClient implementation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// New builds a Client paced at one request per requestDelay, used for both
// event lookups and per-market current-price polling.
func New(requestDelay time.Duration, log zerolog.Logger) *Client {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.With().Str("client", "markets").Logger(),
	}
}

// GetEventBySlug fetches the event with the given slug, returning
// (nil, nil) if the API has no such event.
func (c *Client) GetEventBySlug(slug string) (*market.GammaEvent, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("markets: rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s/events?slug=%s", c.baseURL, url.QueryEscape(slug))
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("markets: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("markets: get event %s: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("markets: get event %s: status %d", slug, resp.StatusCode)
	}

	var events []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("markets: decode event %s: %w", slug, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	var event market.GammaEvent
	if err := json.Unmarshal(events[0], &event); err != nil {
		return nil, fmt.Errorf("markets: decode event %s: %w", slug, err)
	}
	event.Raw = events[0]
	return &event, nil
}

// CurrentPrices fetches the current YES outcome price for each market id,
// used by the exit pipeline's mark-to-market sweep. A market that cannot
// be fetched is simply omitted from the result rather than failing the
// whole batch.
func (c *Client) CurrentPrices(marketIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(marketIDs))
	for _, id := range marketIDs {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return out, fmt.Errorf("markets: rate limiter: %w", err)
		}

		u := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(id))
		resp, err := c.httpClient.Get(u)
		if err != nil {
			c.log.Debug().Err(err).Str("market_id", id).Msg("failed to fetch current price")
			continue
		}

		func() {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				c.log.Debug().Int("status", resp.StatusCode).Str("market_id", id).Msg("non-200 fetching current price")
				return
			}
			var payload struct {
				OutcomePrices json.RawMessage `json:"outcomePrices"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return
			}
			var prices []string
			if err := json.Unmarshal(payload.OutcomePrices, &prices); err != nil {
				var raw string
				if err := json.Unmarshal(payload.OutcomePrices, &raw); err == nil {
					_ = json.Unmarshal([]byte(raw), &prices)
				}
			}
			if len(prices) == 0 {
				return
			}
			var price float64
			if _, err := fmt.Sscanf(prices[0], "%f", &price); err == nil {
				out[id] = price
			}
		}()
	}
	return out, nil
}
