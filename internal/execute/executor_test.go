package execute

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.New(store.Config{Path: filepath.Join(dir, "engine.db"), Name: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleIntent(key string) domain.OrderIntent {
	return domain.OrderIntent{
		RunID:          "run-1",
		IdempotencyKey: key,
		MarketID:       "market-1",
		ClobTokenID:    "tok-1",
		Side:           domain.SideBuy,
		Price:          0.12,
		SizeUSD:        5.0,
		CitySlug:       "nyc",
		TargetDate:     "2026-08-01",
		BucketLabel:    "72-74",
		NetEdge:        0.08,
	}
}

func TestExecuteDryRunFills(t *testing.T) {
	db := newTestDB(t)
	executor := New(db, NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())

	result, err := executor.Execute(sampleIntent("key-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDryRun, result.Status)
	require.NotNil(t, result.FillPrice)
	assert.Equal(t, 0.12, *result.FillPrice)
}

func TestExecuteBlocksDuplicateIdempotencyKey(t *testing.T) {
	db := newTestDB(t)
	executor := New(db, NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())

	_, err := executor.Execute(sampleIntent("key-dup"))
	require.NoError(t, err)

	result, err := executor.Execute(sampleIntent("key-dup"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicate, result.Status)
}

func TestExecuteRejectsWhenKillSwitchActive(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SetState("kill_switch", "true"))
	executor := New(db, NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())

	result, err := executor.Execute(sampleIntent("key-2"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Status)

	exists, err := db.IntentExists("key-2")
	require.NoError(t, err)
	assert.False(t, exists, "rejected-at-executor intents are never persisted")
}

func TestExecuteVenueAdapterFillsOnVendorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req venueOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "key-3", req.ClientOrderID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(venueOrderResponse{
			Success:   true,
			TradeID:   "trade-123",
			FillPrice: 0.12,
			FillSize:  5.0,
		})
	}))
	defer srv.Close()

	db := newTestDB(t)
	executor := New(db, NewVenueAdapter("default", srv.URL, "test-key", zerolog.Nop()), zerolog.Nop())

	result, err := executor.Execute(sampleIntent("key-3"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFilled, result.Status)
	require.NotNil(t, result.FillPrice)
	assert.Equal(t, 0.12, *result.FillPrice)

	exists, err := db.IntentExists("key-3")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExecuteVenueAdapterRejectsOnVendorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(venueOrderResponse{
			Success: false,
			Error:   "insufficient liquidity",
		})
	}))
	defer srv.Close()

	db := newTestDB(t)
	executor := New(db, NewVenueAdapter("default", srv.URL, "test-key", zerolog.Nop()), zerolog.Nop())

	result, err := executor.Execute(sampleIntent("key-4"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Status)
	assert.Equal(t, "insufficient liquidity", result.ErrorMessage)
}

func TestExecuteTrapsAdapterErrorAsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // closed before use: every dial fails, simulating a network-down venue

	db := newTestDB(t)
	executor := New(db, NewVenueAdapter("default", srv.URL, "test-key", zerolog.Nop()), zerolog.Nop())

	result, err := executor.Execute(sampleIntent("key-5"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.NotEmpty(t, result.ErrorMessage)

	exists, err := db.IntentExists("key-5")
	require.NoError(t, err)
	assert.True(t, exists, "the intent persists even though dispatch failed")
}
