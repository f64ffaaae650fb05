package signal

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
)

// ForecastKey identifies one (city, target date) forecast lookup.
type ForecastKey struct {
	CitySlug   string
	TargetDate string
}

// Generator produces EdgeResults for a run's scanned events and fetched
// forecasts, then filters and converts the opportunities into Signals.
type Generator struct {
	cfg   config.Config
	runID string
	now   func() time.Time
	log   zerolog.Logger
}

// NewGenerator builds a Generator bound to one run.
func NewGenerator(cfg config.Config, runID string, log zerolog.Logger) *Generator {
	return &Generator{cfg: cfg, runID: runID, now: time.Now, log: log}
}

// Generate computes an EdgeResult for every bucket market across events,
// sorted by net edge descending. Events with no matching forecast produce
// a zero-valued NO_FORECAST_AVAILABLE result for each of their buckets.
func (g *Generator) Generate(events []domain.MarketEvent, forecasts map[ForecastKey]domain.ForecastPoint) []domain.EdgeResult {
	var results []domain.EdgeResult

	for _, event := range events {
		forecast, ok := forecasts[ForecastKey{CitySlug: event.CitySlug, TargetDate: event.TargetDate}]
		if !ok {
			for _, bm := range event.Buckets {
				results = append(results, domain.EdgeResult{
					RunID:          g.runID,
					EventID:        event.EventID,
					MarketID:       bm.MarketID,
					CitySlug:       event.CitySlug,
					TargetDate:     event.TargetDate,
					BucketLabel:    bm.GroupItemTitle,
					MarketPriceYes: bm.OutcomePriceYes,
					ReasonCode:     domain.ReasonNoForecastAvailable,
				})
			}
			continue
		}

		mu := float64(forecast.HighTempF)
		sigma, err := ComputeSigma(event.TargetDate, g.now(), g.cfg.Strategy.UncertaintyBaseF, g.cfg.Strategy.UncertaintyPerDayF)
		if err != nil {
			g.log.Warn().Err(err).Str("event_id", event.EventID).Msg("sigma calibration failed, skipping event")
			continue
		}

		for _, bm := range event.Buckets {
			prob, err := BucketProbability(bm.Bucket, mu, sigma)
			if err != nil {
				results = append(results, domain.EdgeResult{
					RunID:          g.runID,
					EventID:        event.EventID,
					MarketID:       bm.MarketID,
					CitySlug:       event.CitySlug,
					TargetDate:     event.TargetDate,
					BucketLabel:    bm.GroupItemTitle,
					MarketPriceYes: bm.OutcomePriceYes,
					ReasonCode:     domain.ReasonBucketParseError,
					SigmaUsed:      sigma,
				})
				continue
			}

			results = append(results, ComputeEdge(edgeInput{
				RunID:             g.runID,
				EventID:           event.EventID,
				MarketID:          bm.MarketID,
				CitySlug:          event.CitySlug,
				TargetDate:        event.TargetDate,
				BucketLabel:       bm.GroupItemTitle,
				BucketProbability: prob,
				MarketPriceYes:    bm.OutcomePriceYes,
				FeeEstimate:       g.cfg.Strategy.FeeEstimate,
				SlippageEstimate:  g.cfg.Strategy.SlippageEstimate,
				SigmaUsed:         sigma,
				MinEdgeThreshold:  g.cfg.Strategy.MinEdgeThreshold,
				MaxEntryPrice:     g.cfg.Strategy.MaxEntryPrice,
				AcceptingOrders:   bm.AcceptingOrders,
				Liquidity:         bm.Liquidity,
			}))
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].NetEdge > results[j].NetEdge })
	return results
}

// FilterOpportunities returns only the OPPORTUNITY-tagged results.
func FilterOpportunities(results []domain.EdgeResult) []domain.EdgeResult {
	var out []domain.EdgeResult
	for _, r := range results {
		if r.ReasonCode == domain.ReasonOpportunity {
			out = append(out, r)
		}
	}
	return out
}

// ToSignals converts opportunities into executable Signals, sized at the
// configured max position size and carrying the YES token id looked up
// from the originating events.
func ToSignals(cfg config.Config, opportunities []domain.EdgeResult, events []domain.MarketEvent) []domain.Signal {
	type marketInfo struct {
		clobTokenIDYes string
	}
	marketMap := make(map[string]marketInfo)
	for _, event := range events {
		for _, bm := range event.Buckets {
			marketMap[bm.MarketID] = marketInfo{clobTokenIDYes: bm.ClobTokenIDYes}
		}
	}

	var signals []domain.Signal
	for _, opp := range opportunities {
		info, ok := marketMap[opp.MarketID]
		if !ok {
			continue
		}
		signals = append(signals, domain.Signal{
			EdgeResult:      opp,
			MarketID:        opp.MarketID,
			ClobTokenIDYes:  info.clobTokenIDYes,
			ProposedSizeUSD: cfg.Risk.MaxPositionSizeUSD,
		})
	}
	return signals
}
