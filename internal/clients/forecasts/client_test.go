package forecasts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	c := New(zerolog.Nop())
	c.baseURL = srv.URL
	c.retryBaseDelay = time.Millisecond
	return c
}

func TestGetForecastParsesPeriods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gridpoints/OKX/37,39/forecast", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"properties": map[string]any{
				"periods": []map[string]any{
					{"number": 1, "name": "Today", "temperature": 42, "isDaytime": true, "startTime": "2026-02-11T06:00:00-05:00"},
				},
			},
		})
	}))
	defer srv.Close()

	out, err := newTestClient(srv).GetForecast("OKX", 37, 39)
	require.NoError(t, err)
	require.Len(t, out.Properties.Periods, 1)
	assert.Equal(t, 42, out.Properties.Periods[0].Temperature)
}

func TestGetForecastRetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"properties": map[string]any{"periods": []map[string]any{}}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetForecast("OKX", 37, 39)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetForecastExhaustsRetriesOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetForecast("OKX", 37, 39)
	require.Error(t, err)
}

func TestGetForecastReturnsErrorOnNon2xxNonRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetForecast("OKX", 37, 39)
	require.Error(t, err)
}
