package markets

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEventBySlugReturnsNilWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	c := New(0, zerolog.Nop())
	c.baseURL = srv.URL

	event, err := c.GetEventBySlug("no-such-event")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestGetEventBySlugParsesFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "evt-1", "slug": "highest-temperature-in-nyc-on-february-11-2026", "title": "t", "markets": []any{}},
		})
	}))
	defer srv.Close()

	c := New(0, zerolog.Nop())
	c.baseURL = srv.URL

	event, err := c.GetEventBySlug("highest-temperature-in-nyc-on-february-11-2026")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "evt-1", event.ID)
}

func TestCurrentPricesOmitsUnfetchableMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/markets/mkt-good" {
			json.NewEncoder(w).Encode(map[string]any{"outcomePrices": []string{"0.63", "0.37"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(0, zerolog.Nop())
	c.baseURL = srv.URL

	prices, err := c.CurrentPrices([]string{"mkt-good", "mkt-missing"})
	require.NoError(t, err)
	assert.Equal(t, 0.63, prices["mkt-good"])
	_, ok := prices["mkt-missing"]
	assert.False(t, ok)
}

func TestCurrentPricesHandlesStringEncodedArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"outcomePrices": `["0.71","0.29"]`})
	}))
	defer srv.Close()

	c := New(0, zerolog.Nop())
	c.baseURL = srv.URL

	prices, err := c.CurrentPrices([]string{"mkt-1"})
	require.NoError(t, err)
	assert.Equal(t, 0.71, prices["mkt-1"])
}

func TestNewUsesInfiniteLimiterWhenDelayNonPositive(t *testing.T) {
	c := New(0, zerolog.Nop())
	require.NotNil(t, c.limiter)
}

func TestNewUsesBoundedLimiterWhenDelayPositive(t *testing.T) {
	c := New(50*time.Millisecond, zerolog.Nop())
	require.NotNil(t, c.limiter)
}
