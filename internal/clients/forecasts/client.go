// Package forecasts provides an HTTP client for the NWS-shaped gridpoint
// forecast API, with bounded retry and exponential backoff on transient
// errors.
package forecasts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/forecast"
)

const defaultBaseURL = "https://api.weather.gov"
const userAgent = "wxengine/0.1.0"

// Client fetches gridpoint forecasts with bounded retry-with-backoff on
// 503/429 responses and network errors.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	log            zerolog.Logger
}

// New builds a Client with the original integration's retry defaults: 3
// retries, 5s base backoff (doubling each attempt).
func New(log zerolog.Logger) *Client {
	return &Client{
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxRetries:     3,
		retryBaseDelay: 5 * time.Second,
		log:            log.With().Str("client", "forecasts").Logger(),
	}
}

// GetForecast fetches the 7-day forecast for one gridpoint, retrying on
// 503/429 and network errors with exponential backoff.
func (c *Client) GetForecast(gridID string, gridX, gridY int) (forecast.NWSForecast, error) {
	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast", c.baseURL, gridID, gridX, gridY)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return forecast.NWSForecast{}, fmt.Errorf("forecasts: build request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/geo+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				delay := c.backoff(attempt)
				c.log.Warn().Err(err).Dur("retry_in", delay).Int("attempt", attempt+1).Msg("forecasts request error, retrying")
				time.Sleep(delay)
				continue
			}
			return forecast.NWSForecast{}, fmt.Errorf("forecasts: get gridpoint %s/%d,%d: %w", gridID, gridX, gridY, err)
		}

		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt < c.maxRetries {
				delay := c.backoff(attempt)
				c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", delay).Int("attempt", attempt+1).Msg("forecasts transient error, retrying")
				time.Sleep(delay)
				continue
			}
			return forecast.NWSForecast{}, fmt.Errorf("forecasts: gridpoint %s/%d,%d: status %d after %d retries", gridID, gridX, gridY, resp.StatusCode, c.maxRetries)
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return forecast.NWSForecast{}, fmt.Errorf("forecasts: gridpoint %s/%d,%d: status %d", gridID, gridX, gridY, resp.StatusCode)
		}

		var out forecast.NWSForecast
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return forecast.NWSForecast{}, fmt.Errorf("forecasts: decode gridpoint %s/%d,%d: %w", gridID, gridX, gridY, err)
		}
		return out, nil
	}
	return forecast.NWSForecast{}, fmt.Errorf("forecasts: exhausted retries: %w", lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.retryBaseDelay * time.Duration(1<<uint(attempt))
}
