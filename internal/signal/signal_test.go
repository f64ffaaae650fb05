package signal

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestComputeSigmaFloorsAtMinSigma(t *testing.T) {
	now := time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)
	sigma, err := ComputeSigma("2026-08-01", now, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, MinSigma, sigma)
}

func TestComputeSigmaScalesWithDaysOut(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sigma, err := ComputeSigma("2026-08-03", now, 2.5, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5+0.5*3, sigma, 0.05)
}

func TestComputeSigmaRejectsMalformedDate(t *testing.T) {
	_, err := ComputeSigma("08/03/2026", time.Now(), 2.5, 0.5)
	require.Error(t, err)
}

func TestBucketProbabilityExactPeaksAtForecastMean(t *testing.T) {
	p72, err := BucketProbability(domain.Bucket{Type: domain.BucketExact, Low: 72, High: 72}, 72, 2.5)
	require.NoError(t, err)
	p73, err := BucketProbability(domain.Bucket{Type: domain.BucketExact, Low: 73, High: 73}, 72, 2.5)
	require.NoError(t, err)
	assert.Greater(t, p72, p73)
}

func TestBucketProbabilityOrHigherAndOrBelowComplementExactRange(t *testing.T) {
	orHigher, err := BucketProbability(domain.Bucket{Type: domain.BucketOrHigher, Low: 70, High: 70}, 72, 2.5)
	require.NoError(t, err)
	orBelow, err := BucketProbability(domain.Bucket{Type: domain.BucketOrBelow, Low: 69, High: 69}, 72, 2.5)
	require.NoError(t, err)
	rangeP, err := BucketProbability(domain.Bucket{Type: domain.BucketRange, Low: 70, High: 100}, 72, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, orHigher+orBelow, 0.0001)
	assert.Greater(t, rangeP, 0.0)
}

func TestBucketProbabilityRejectsNonPositiveSigma(t *testing.T) {
	_, err := BucketProbability(domain.Bucket{Type: domain.BucketExact, Low: 72, High: 72}, 72, 0)
	require.Error(t, err)
}

func TestComputeEdgeReasonCodeOrder(t *testing.T) {
	base := edgeInput{
		BucketProbability: 0.5,
		MarketPriceYes:    0.1,
		FeeEstimate:        0.02,
		SlippageEstimate:   0.01,
		MinEdgeThreshold:   0.05,
		MaxEntryPrice:      0.15,
		AcceptingOrders:    true,
		Liquidity:          100,
	}

	notAccepting := base
	notAccepting.AcceptingOrders = false
	assert.Equal(t, domain.ReasonNotAcceptingOrders, ComputeEdge(notAccepting).ReasonCode)

	zeroLiquidity := base
	zeroLiquidity.Liquidity = 0
	assert.Equal(t, domain.ReasonZeroLiquidity, ComputeEdge(zeroLiquidity).ReasonCode)

	aboveMaxEntry := base
	aboveMaxEntry.MarketPriceYes = 0.20
	assert.Equal(t, domain.ReasonPriceAboveMaxEntry, ComputeEdge(aboveMaxEntry).ReasonCode)

	negativeEdge := base
	negativeEdge.BucketProbability = 0.05
	negativeEdge.MarketPriceYes = 0.10
	assert.Equal(t, domain.ReasonNegativeEdge, ComputeEdge(negativeEdge).ReasonCode)

	belowThreshold := base
	belowThreshold.BucketProbability = 0.13
	belowThreshold.MarketPriceYes = 0.10
	assert.Equal(t, domain.ReasonEdgeBelowThreshold, ComputeEdge(belowThreshold).ReasonCode)

	opportunity := ComputeEdge(base)
	assert.Equal(t, domain.ReasonOpportunity, opportunity.ReasonCode)
}

func TestGenerateProducesNoForecastAvailableWhenMissing(t *testing.T) {
	cfg := config.Default()
	gen := NewGenerator(cfg, "run-1", testLogger())
	events := []domain.MarketEvent{{
		EventID: "evt-1", CitySlug: "nyc", TargetDate: "2026-08-01",
		Buckets: []domain.BucketMarket{{MarketID: "m1", GroupItemTitle: "72-74", OutcomePriceYes: 0.1}},
	}}
	results := gen.Generate(events, map[ForecastKey]domain.ForecastPoint{})
	require.Len(t, results, 1)
	assert.Equal(t, domain.ReasonNoForecastAvailable, results[0].ReasonCode)
}

func TestGenerateSortsByNetEdgeDescending(t *testing.T) {
	cfg := config.Default()
	gen := NewGenerator(cfg, "run-1", testLogger())
	events := []domain.MarketEvent{{
		EventID: "evt-1", CitySlug: "nyc", TargetDate: "2026-08-01",
		Buckets: []domain.BucketMarket{
			{MarketID: "low", GroupItemTitle: "60-62", OutcomePriceYes: 0.3, AcceptingOrders: true, Liquidity: 100,
				Bucket: domain.Bucket{Type: domain.BucketRange, Low: 60, High: 62}},
			{MarketID: "high", GroupItemTitle: "72-74", OutcomePriceYes: 0.05, AcceptingOrders: true, Liquidity: 100,
				Bucket: domain.Bucket{Type: domain.BucketRange, Low: 72, High: 74}},
		},
	}}
	forecasts := map[ForecastKey]domain.ForecastPoint{
		{CitySlug: "nyc", TargetDate: "2026-08-01"}: {CitySlug: "nyc", TargetDate: "2026-08-01", HighTempF: 73},
	}
	results := gen.Generate(events, forecasts)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].NetEdge, results[1].NetEdge)
}
