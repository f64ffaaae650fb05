// Package exit implements the mark-to-market sweep over open positions:
// refresh current prices, update unrealized PnL, and sell any position
// whose current price has crossed the configured exit threshold.
package exit

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/execute"
	"github.com/duskfield/wxengine/pkg/idgen"
)

// PriceFetcher resolves current YES prices for a set of market ids. The
// concrete implementation hits the markets API; tests supply a fake.
type PriceFetcher interface {
	CurrentPrices(marketIDs []string) (map[string]float64, error)
}

// Store is the subset of the database the exit pipeline reads and writes.
type Store interface {
	ControlFlags() (domain.ControlFlags, error)
	OpenPositions() ([]domain.Position, error)
	MarkPosition(id int64, currentPrice, unrealizedPnL float64) error
	ClosePosition(id int64) error
}

// Summary counts one sweep's outcome.
type Summary struct {
	PositionsChecked int
	PricesUpdated    int
	ExitsFound       int
	ExitsExecuted    int
	ExitsFailed      int
}

// Pipeline runs one mark-to-market sweep per cycle.
type Pipeline struct {
	cfg      config.Config
	store    Store
	prices   PriceFetcher
	executor *execute.Executor
	runID    string
	log      zerolog.Logger
}

// New builds a Pipeline bound to one run.
func New(cfg config.Config, store Store, prices PriceFetcher, executor *execute.Executor, runID string, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, prices: prices, executor: executor, runID: runID, log: log.With().Str("component", "exit_pipeline").Logger()}
}

// Run sweeps every open position. It skips entirely if the kill switch or
// pause flag is set, mirroring the entry pipeline's own gating.
func (p *Pipeline) Run() (Summary, error) {
	var summary Summary

	flags, err := p.store.ControlFlags()
	if err != nil {
		return summary, err
	}
	if flags.KillSwitch {
		p.log.Warn().Msg("kill switch active, skipping exits")
		return summary, nil
	}
	if flags.Paused {
		p.log.Warn().Msg("system paused, skipping exits")
		return summary, nil
	}

	positions, err := p.store.OpenPositions()
	if err != nil {
		return summary, err
	}
	if len(positions) == 0 {
		return summary, nil
	}
	summary.PositionsChecked = len(positions)

	uniqueMarkets := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		uniqueMarkets[pos.MarketID] = struct{}{}
	}
	marketIDs := make([]string, 0, len(uniqueMarkets))
	for id := range uniqueMarkets {
		marketIDs = append(marketIDs, id)
	}

	priceMap, err := p.prices.CurrentPrices(marketIDs)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to fetch current prices, continuing with partial data")
	}

	minExit := p.cfg.Strategy.MinExitPrice

	for _, pos := range positions {
		currentPrice, ok := priceMap[pos.MarketID]
		if !ok {
			continue
		}

		unrealized := (currentPrice - pos.EntryPrice) * sharesFor(pos)
		if err := p.store.MarkPosition(pos.ID, currentPrice, unrealized); err != nil {
			return summary, err
		}
		summary.PricesUpdated++

		if currentPrice < minExit {
			continue
		}

		summary.ExitsFound++
		shares := sharesFor(pos)
		p.log.Info().
			Str("city", pos.CitySlug).
			Str("bucket", pos.BucketLabel).
			Float64("current_price", currentPrice).
			Float64("threshold", minExit).
			Float64("entry_price", pos.EntryPrice).
			Msg("exit triggered")

		idemKey := idgen.IdempotencyKey(p.runID, pos.MarketID, string(domain.SideSell), currentPrice)
		intent := domain.OrderIntent{
			RunID:          p.runID,
			IdempotencyKey: idemKey,
			MarketID:       pos.MarketID,
			Side:           domain.SideSell,
			Price:          currentPrice,
			SizeUSD:        pos.SizeUSD,
			CitySlug:       pos.CitySlug,
			TargetDate:     pos.TargetDate,
			BucketLabel:    pos.BucketLabel,
			NetEdge:        currentPrice - pos.EntryPrice,
			CreatedAt:      time.Now().UTC(),
		}

		result, err := p.executor.Execute(intent)
		if err != nil {
			return summary, err
		}

		if result.Status == domain.StatusDryRun || result.Status == domain.StatusFilled {
			summary.ExitsExecuted++
			if err := p.store.ClosePosition(pos.ID); err != nil {
				return summary, err
			}
			pnl := shares * (currentPrice - pos.EntryPrice)
			p.log.Info().Str("city", pos.CitySlug).Str("bucket", pos.BucketLabel).Float64("realized_pnl", pnl).Msg("exit done")
		} else {
			summary.ExitsFailed++
		}
	}

	return summary, nil
}

func sharesFor(pos domain.Position) float64 {
	if pos.EntryPrice <= 0 {
		return 0
	}
	return pos.SizeUSD / pos.EntryPrice
}
