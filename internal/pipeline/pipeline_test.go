package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/forecast"
	"github.com/duskfield/wxengine/internal/market"
	"github.com/duskfield/wxengine/internal/store"
)

type fakeGamma struct {
	events map[string]*market.GammaEvent
}

func (f *fakeGamma) GetEventBySlug(slug string) (*market.GammaEvent, error) {
	return f.events[slug], nil
}

type fakeGrid struct {
	forecast forecast.NWSForecast
}

func (f *fakeGrid) GetForecast(gridID string, gridX, gridY int) (forecast.NWSForecast, error) {
	return f.forecast, nil
}

type fakePrices struct{}

func (f *fakePrices) CurrentPrices(marketIDs []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Cities = []config.CityConfig{
		{Name: "New York", Slug: "nyc", GridID: "OKX", GridX: 33, GridY: 37, Enabled: true},
	}
	cfg.Ops.LookaheadDays = 1
	return cfg
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

func TestRunWithNoEventsProducesCleanSummary(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	gamma := &fakeGamma{events: map[string]*market.GammaEvent{}}
	grid := &fakeGrid{}
	p := New(cfg, db, gamma, grid, &fakePrices{}, zerolog.Nop())

	sum, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CitiesScanned)
	assert.Equal(t, 0, sum.EventsFound)
	assert.Empty(t, sum.Errors)
}

func TestRunAbortsWhenKillSwitchActive(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SetState("kill_switch", "true"))
	cfg := testConfig()
	p := New(cfg, db, &fakeGamma{events: map[string]*market.GammaEvent{}}, &fakeGrid{}, &fakePrices{}, zerolog.Nop())

	sum, err := p.Run()
	require.NoError(t, err)
	assert.NotEmpty(t, sum.Errors)
	assert.Equal(t, 0, sum.EventsFound)
}

func TestRunGeneratesOpportunityAndExecutesDryRunOrder(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.Strategy.MinEdgeThreshold = 0.0
	cfg.Strategy.MaxEntryPrice = 1.0
	cfg.Risk.MaxPositionSizeUSD = 10.0
	cfg.Risk.MaxTotalExposureUSD = 100.0
	cfg.Risk.MaxPerCityExposureUSD = 100.0
	cfg.Risk.MaxDailyLossUSD = 100.0
	cfg.Risk.MinHoursToResolution = 0.0
	cfg.Risk.SlippageCeiling = 1.0

	slug := market.BuildEventSlug("nyc", 2026, 8, 1)
	event := &market.GammaEvent{
		ID:    "evt-1",
		Slug:  slug,
		Title: "Highest temperature in NYC on August 1?",
		Markets: []market.GammaMarket{
			{
				ID:                 "mkt-1",
				ConditionID:        "cond-1",
				Slug:               slug + "-44-46f",
				ClobTokenIDs:       []string{"tok-yes", "tok-no"},
				OutcomePrices:      []string{"0.10", "0.90"},
				BestBid:            0.09,
				BestAsk:            0.11,
				AcceptingOrders:    true,
				Liquidity:          500,
				EndDate:            "2026-08-01T23:59:59Z",
				GroupItemTitle:     "44-46",
				GroupItemThreshold: "44-46",
			},
		},
	}
	gamma := &fakeGamma{events: map[string]*market.GammaEvent{slug: event}}

	raw := forecast.NWSForecast{}
	raw.Properties.Periods = []struct {
		Name            string `json:"name"`
		StartTime       string `json:"startTime"`
		EndTime         string `json:"endTime"`
		Temperature     int    `json:"temperature"`
		TemperatureUnit string `json:"temperatureUnit"`
		IsDaytime       bool   `json:"isDaytime"`
		ShortForecast   string `json:"shortForecast"`
	}{
		{StartTime: "2026-08-01T06:00:00-04:00", Temperature: 45, IsDaytime: true},
	}
	grid := &fakeGrid{forecast: raw}

	p := New(cfg, db, gamma, grid, &fakePrices{}, zerolog.Nop())
	p.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	sum, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.EventsFound)
	assert.GreaterOrEqual(t, sum.OpportunitiesFound, 0)

	positions, err := db.OpenPositions()
	require.NoError(t, err)
	if sum.OpportunitiesFound > 0 {
		assert.NotEmpty(t, positions)
	}
}
