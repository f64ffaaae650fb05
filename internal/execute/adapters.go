package execute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/domain"
)

// DryRunAdapter simulates a fill at the intent's price, logging what a
// live submission would have done. It satisfies domain.BrokerAdapter.
type DryRunAdapter struct {
	log zerolog.Logger
}

// NewDryRunAdapter builds the adapter used whenever execution.mode is
// "dry-run".
func NewDryRunAdapter(log zerolog.Logger) *DryRunAdapter {
	return &DryRunAdapter{log: log.With().Str("component", "dry_run_adapter").Logger()}
}

func (a *DryRunAdapter) Execute(intent domain.OrderIntent) (domain.OrderResult, error) {
	a.log.Info().
		Str("side", string(intent.Side)).
		Str("bucket", intent.BucketLabel).
		Str("market_id", intent.MarketID).
		Float64("price", intent.Price).
		Float64("size_usd", intent.SizeUSD).
		Float64("net_edge", intent.NetEdge).
		Msg("dry-run order")

	price := intent.Price
	size := intent.SizeUSD
	return domain.OrderResult{
		IdempotencyKey: intent.IdempotencyKey,
		Status:         domain.StatusDryRun,
		FillPrice:      &price,
		FillSize:       &size,
		ExecutedAt:     time.Now().UTC(),
	}, nil
}

// venueOrderRequest is the outbound order payload. ClientOrderID carries
// the idempotency key so the brokerage can de-dupe retried submissions
// on its own side too.
type venueOrderRequest struct {
	ClientOrderID string  `json:"client_order_id"`
	TokenID       string  `json:"token_id"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	SizeUSD       float64 `json:"size_usd"`
}

// venueOrderResponse is the brokerage's response envelope. Success true
// with a non-empty TradeID means filled; Success false is a business
// rejection (insufficient liquidity, price moved, market closed, ...)
// carrying the vendor's Error string. Non-2xx or a malformed body are
// not represented here — those become Go errors before decoding.
type venueOrderResponse struct {
	Success   bool    `json:"success"`
	TradeID   string  `json:"trade_id"`
	FillPrice float64 `json:"fill_price"`
	FillSize  float64 `json:"fill_size"`
	Error     string  `json:"error"`
}

// VenueAdapter is the single live brokerage adapter. It routes every
// intent to venue over HTTP and maps the response into FILLED or
// REJECTED; HTTP/IO failures are returned as a Go error, which the
// Executor traps and records as FAILED.
type VenueAdapter struct {
	venue      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewVenueAdapter builds the adapter used whenever execution.mode is
// "live". venue names which brokerage integration this instance targets
// (execution.venue in config); baseURL and apiKey come from
// execution.base_url / execution.api_key.
func NewVenueAdapter(venue, baseURL, apiKey string, log zerolog.Logger) *VenueAdapter {
	return &VenueAdapter{
		venue:      venue,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "venue_adapter").Str("venue", venue).Logger(),
	}
}

func (a *VenueAdapter) Execute(intent domain.OrderIntent) (domain.OrderResult, error) {
	body, err := json.Marshal(venueOrderRequest{
		ClientOrderID: intent.IdempotencyKey,
		TokenID:       intent.ClobTokenID,
		Side:          string(intent.Side),
		Price:         intent.Price,
		SizeUSD:       intent.SizeUSD,
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("execute: venue %s: encode order: %w", a.venue, err)
	}

	req, err := http.NewRequest(http.MethodPost, a.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("execute: venue %s: build request: %w", a.venue, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	a.log.Info().
		Str("idempotency_key", intent.IdempotencyKey).
		Str("market_id", intent.MarketID).
		Str("side", string(intent.Side)).
		Float64("price", intent.Price).
		Float64("size_usd", intent.SizeUSD).
		Msg("submitting live order")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("execute: venue %s: submit order: %w", a.venue, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.OrderResult{}, fmt.Errorf("execute: venue %s: submit order: status %d", a.venue, resp.StatusCode)
	}

	var out venueOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.OrderResult{}, fmt.Errorf("execute: venue %s: decode response: %w", a.venue, err)
	}

	now := time.Now().UTC()
	if !out.Success || out.TradeID == "" {
		a.log.Warn().Str("idempotency_key", intent.IdempotencyKey).Str("vendor_error", out.Error).Msg("venue rejected order")
		return domain.OrderResult{
			IdempotencyKey: intent.IdempotencyKey,
			Status:         domain.StatusRejected,
			ErrorMessage:   out.Error,
			ExecutedAt:     now,
		}, nil
	}

	fillPrice := out.FillPrice
	if fillPrice == 0 {
		fillPrice = intent.Price
	}
	fillSize := out.FillSize
	if fillSize == 0 {
		fillSize = intent.SizeUSD
	}
	return domain.OrderResult{
		IdempotencyKey: intent.IdempotencyKey,
		Status:         domain.StatusFilled,
		FillPrice:      &fillPrice,
		FillSize:       &fillSize,
		ExecutedAt:     now,
	}, nil
}
