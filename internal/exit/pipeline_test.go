package exit

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/execute"
	"github.com/duskfield/wxengine/internal/store"
)

type fakePrices struct {
	byMarket map[string]float64
}

func (f fakePrices) CurrentPrices(marketIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(marketIDs))
	for _, id := range marketIDs {
		if p, ok := f.byMarket[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.New(store.Config{Path: filepath.Join(dir, "engine.db"), Name: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExitPipelineClosesPositionAboveThreshold(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	cfg.Strategy.MinExitPrice = 0.45

	posID, err := db.InsertPosition(domain.Position{
		MarketID: "m1", CitySlug: "nyc", TargetDate: "2026-08-01",
		BucketLabel: "72-74", EntryPrice: 0.10, SizeUSD: 5.0,
	})
	require.NoError(t, err)

	executor := execute.New(db, execute.NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())
	pipeline := New(cfg, db, fakePrices{byMarket: map[string]float64{"m1": 0.50}}, executor, "run-1", zerolog.Nop())

	summary, err := pipeline.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PositionsChecked)
	assert.Equal(t, 1, summary.ExitsFound)
	assert.Equal(t, 1, summary.ExitsExecuted)

	open, err := db.OpenPositions()
	require.NoError(t, err)
	assert.Empty(t, open)
	_ = posID
}

func TestExitPipelineHoldsBelowThreshold(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	cfg.Strategy.MinExitPrice = 0.45

	_, err := db.InsertPosition(domain.Position{
		MarketID: "m1", CitySlug: "nyc", TargetDate: "2026-08-01",
		BucketLabel: "72-74", EntryPrice: 0.10, SizeUSD: 5.0,
	})
	require.NoError(t, err)

	executor := execute.New(db, execute.NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())
	pipeline := New(cfg, db, fakePrices{byMarket: map[string]float64{"m1": 0.30}}, executor, "run-1", zerolog.Nop())

	summary, err := pipeline.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExitsFound)
	assert.Equal(t, 1, summary.PricesUpdated)

	open, err := db.OpenPositions()
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestExitPipelineSkipsWhenKillSwitchActive(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SetState("kill_switch", "true"))
	cfg := config.Default()

	executor := execute.New(db, execute.NewDryRunAdapter(zerolog.Nop()), zerolog.Nop())
	pipeline := New(cfg, db, fakePrices{}, executor, "run-1", zerolog.Nop())

	summary, err := pipeline.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PositionsChecked)
}
