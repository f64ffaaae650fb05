package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := New(Config{Path: filepath.Join(dir, "engine.db"), Name: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM schema_versions`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestControlFlagsDefaults(t *testing.T) {
	db := newTestDB(t)
	flags, err := db.ControlFlags()
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDryRun, flags.Mode)
	assert.False(t, flags.Paused)
	assert.False(t, flags.KillSwitch)
}

func TestSetStateRoundTrips(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SetState("kill_switch", "true"))
	flags, err := db.ControlFlags()
	require.NoError(t, err)
	assert.True(t, flags.KillSwitch)

	require.NoError(t, db.SetState("kill_switch", "false"))
	flags, err = db.ControlFlags()
	require.NoError(t, err)
	assert.False(t, flags.KillSwitch)
}

func TestOrderIntentIdempotency(t *testing.T) {
	db := newTestDB(t)
	intent := domain.OrderIntent{
		RunID:          "run-1",
		IdempotencyKey: "abc123",
		MarketID:       "market-1",
		ClobTokenID:    "tok-1",
		Side:           domain.SideBuy,
		Price:          0.42,
		SizeUSD:        5.0,
		CitySlug:       "nyc",
		TargetDate:     "2026-08-01",
		BucketLabel:    "72-74",
		NetEdge:        0.08,
	}
	require.NoError(t, db.InsertOrderIntent(intent))

	exists, err := db.IntentExists("abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.IntentExists("does-not-exist")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPositionExposureAccumulates(t *testing.T) {
	db := newTestDB(t)
	_, err := db.InsertPosition(domain.Position{
		MarketID: "m1", CitySlug: "nyc", TargetDate: "2026-08-01",
		BucketLabel: "72-74", EntryPrice: 0.4, SizeUSD: 10,
	})
	require.NoError(t, err)
	_, err = db.InsertPosition(domain.Position{
		MarketID: "m2", CitySlug: "chicago", TargetDate: "2026-08-01",
		BucketLabel: "68-70", EntryPrice: 0.3, SizeUSD: 15,
	})
	require.NoError(t, err)

	total, err := db.TotalExposure()
	require.NoError(t, err)
	assert.Equal(t, 25.0, total)

	nyc, err := db.PerCityExposure("nyc")
	require.NoError(t, err)
	assert.Equal(t, 10.0, nyc)
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateRun("run-1", "dry-run", "hash123"))

	bestEdge := 0.12
	require.NoError(t, db.CompleteRun("run-1", "completed", RunSummary{
		CitiesScanned: 5, EventsFound: 12, OpportunitiesFound: 3,
		OrdersAttempted: 2, OrdersSucceeded: 2, BestEdge: &bestEdge,
	}, `{"ok":true}`, ""))

	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM runs WHERE run_id = ?`, "run-1").Scan(&status))
	assert.Equal(t, "completed", status)
}
