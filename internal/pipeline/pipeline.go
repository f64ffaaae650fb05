// Package pipeline orchestrates one complete scan cycle: ingest markets,
// ingest forecasts, generate signals, evaluate risk, execute orders, sweep
// exits, and report. Every stage runs even when an earlier stage finds
// nothing, so a quiet cycle still produces a full audit trail.
package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/execute"
	"github.com/duskfield/wxengine/internal/exit"
	"github.com/duskfield/wxengine/internal/forecast"
	"github.com/duskfield/wxengine/internal/market"
	"github.com/duskfield/wxengine/internal/risk"
	"github.com/duskfield/wxengine/internal/signal"
	"github.com/duskfield/wxengine/internal/store"
	"github.com/duskfield/wxengine/internal/summary"
	"github.com/duskfield/wxengine/pkg/idgen"
)

// Pipeline wires every stage's concrete collaborators for one engine
// instance. A fresh run ID and Summarizer are created per Run call.
type Pipeline struct {
	cfg    config.Config
	db     *store.DB
	gamma  market.GammaClient
	grid   forecast.Client
	prices exit.PriceFetcher
	now    func() time.Time
	log    zerolog.Logger
}

// New builds a Pipeline bound to one configuration, database, and the
// external API clients it drives.
func New(cfg config.Config, db *store.DB, gamma market.GammaClient, grid forecast.Client, prices exit.PriceFetcher, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, gamma: gamma, grid: grid, prices: prices, now: time.Now, log: log.With().Str("component", "scan_pipeline").Logger()}
}

// Run executes one full scan cycle and returns its summary. It never
// returns an error for ordinary ingest/signal/risk problems — those are
// recorded in the summary and logged — only for failures the pipeline
// cannot account for a run with (a config-hash or run-bookkeeping
// failure).
func (p *Pipeline) Run() (summary.Summary, error) {
	start := time.Now()
	runID := idgen.NewRunID()
	log := p.log.With().Str("run_id", runID).Logger()

	configHash, err := config.Hash(p.cfg)
	if err != nil {
		return summary.Summary{}, fmt.Errorf("pipeline: hash config: %w", err)
	}
	if err := p.db.InsertConfigSnapshot(configHash, ""); err != nil {
		log.Warn().Err(err).Msg("failed to snapshot config")
	}

	mode := string(p.cfg.Execution.Mode)
	if err := p.db.CreateRun(runID, mode, configHash); err != nil {
		return summary.Summary{}, fmt.Errorf("pipeline: create run: %w", err)
	}

	sum := summary.New(runID, mode)

	flags, err := p.db.ControlFlags()
	if err != nil {
		return p.fail(runID, sum, start, err)
	}
	if flags.KillSwitch {
		log.Warn().Msg("kill switch active, aborting scan")
		sum.RecordError(fmt.Errorf("kill switch active"))
		return p.abort(runID, sum, start)
	}
	if flags.Paused {
		log.Warn().Msg("system paused, aborting scan")
		sum.RecordError(fmt.Errorf("system paused"))
		return p.abort(runID, sum, start)
	}

	// 2. INGEST: MARKETS
	scanner := market.New(p.cfg, p.gamma, log)
	events := scanner.Scan(p.now().UTC())
	for _, event := range events {
		if _, err := p.db.InsertMarketEvent(runID, event); err != nil {
			log.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to persist market event")
		}
	}
	enabledCities := 0
	for _, c := range p.cfg.Cities {
		if c.Enabled {
			enabledCities++
		}
	}
	sum.RecordScan(enabledCities, len(events))
	log.Info().Int("events", len(events)).Int("cities", enabledCities).Msg("ingested markets")

	// 3. INGEST: FORECASTS
	fetcher := forecast.New(p.grid, log)
	cityBySlug := make(map[string]config.CityConfig, len(p.cfg.Cities))
	for _, c := range p.cfg.Cities {
		cityBySlug[c.Slug] = c
	}

	forecasts := make(map[signal.ForecastKey]domain.ForecastPoint)
	for _, event := range events {
		key := signal.ForecastKey{CitySlug: event.CitySlug, TargetDate: event.TargetDate}
		if _, ok := forecasts[key]; ok {
			continue
		}
		city, ok := cityBySlug[event.CitySlug]
		if !ok {
			continue
		}
		point, ok := fetcher.Fetch(city, event.TargetDate)
		if !ok {
			continue
		}
		forecasts[key] = point
		if err := p.db.InsertForecastSnapshot(point); err != nil {
			log.Warn().Err(err).Str("city", city.Slug).Msg("failed to persist forecast snapshot")
		}
	}
	log.Info().Int("forecasts", len(forecasts)).Msg("fetched forecasts")

	// 4. SIGNAL GENERATION
	sigGen := signal.NewGenerator(p.cfg, runID, log)
	edgeResults := sigGen.Generate(events, forecasts)
	if err := p.db.InsertEdgeResults(edgeResults); err != nil {
		log.Warn().Err(err).Msg("failed to persist edge results")
	}
	sum.RecordEdgeResults(edgeResults)
	opportunities := signal.FilterOpportunities(edgeResults)
	signals := signal.ToSignals(p.cfg, opportunities, events)
	log.Info().Int("edge_results", len(edgeResults)).Int("opportunities", len(opportunities)).Msg("generated signals")

	// 5. RISK + EXECUTION
	state := risk.NewStateTracker(p.db)
	riskEngine := risk.NewEngine(p.cfg.Risk, state)

	var adapter domain.BrokerAdapter
	if p.cfg.Execution.Mode == config.ExecutionLive {
		adapter = execute.NewVenueAdapter(p.cfg.Execution.Venue, p.cfg.Execution.BaseURL, p.cfg.Execution.APIKey, log)
	} else {
		adapter = execute.NewDryRunAdapter(log)
	}
	executor := execute.New(p.db, adapter, log)

	type bucketInfo struct {
		endDate          string
		bestBid, bestAsk float64
	}
	bucketByMarket := make(map[string]bucketInfo)
	for _, event := range events {
		for _, bm := range event.Buckets {
			bucketByMarket[bm.MarketID] = bucketInfo{endDate: bm.EndDate, bestBid: bm.BestBid, bestAsk: bm.BestAsk}
		}
	}

	for _, sig := range signals {
		info := bucketByMarket[sig.MarketID]
		verdict, err := riskEngine.Evaluate(sig, info.endDate, info.bestBid, info.bestAsk)
		if err != nil {
			log.Warn().Err(err).Str("market_id", sig.MarketID).Msg("risk evaluation failed")
			continue
		}
		sum.RecordRiskVerdict(verdict)

		idemKey := idgen.IdempotencyKey(runID, sig.MarketID, string(domain.SideBuy), sig.EdgeResult.MarketPriceYes)
		if err := p.db.InsertRiskChecks(runID, idemKey, verdict.Checks); err != nil {
			log.Warn().Err(err).Msg("failed to persist risk checks")
		}

		if !verdict.Approved {
			log.Info().Str("market_id", sig.MarketID).Interface("block_reasons", verdict.BlockReasons()).Msg("blocked")
			continue
		}

		intent := domain.OrderIntent{
			RunID:          runID,
			IdempotencyKey: idemKey,
			MarketID:       sig.MarketID,
			ClobTokenID:    sig.ClobTokenIDYes,
			Side:           domain.SideBuy,
			Price:          sig.EdgeResult.MarketPriceYes,
			SizeUSD:        sig.ProposedSizeUSD,
			CitySlug:       sig.EdgeResult.CitySlug,
			TargetDate:     sig.EdgeResult.TargetDate,
			BucketLabel:    sig.EdgeResult.BucketLabel,
			NetEdge:        sig.EdgeResult.NetEdge,
			CreatedAt:      time.Now().UTC(),
		}

		result, err := executor.Execute(intent)
		if err != nil {
			log.Warn().Err(err).Str("market_id", sig.MarketID).Msg("execution error")
			continue
		}
		sum.RecordOrderResult(result)

		if result.Status == domain.StatusDryRun || result.Status == domain.StatusFilled {
			state.RecordTrade(sig.EdgeResult.CitySlug, sig.ProposedSizeUSD)
			if _, err := p.db.InsertPosition(domain.Position{
				MarketID:     sig.MarketID,
				CitySlug:     sig.EdgeResult.CitySlug,
				TargetDate:   sig.EdgeResult.TargetDate,
				BucketLabel:  sig.EdgeResult.BucketLabel,
				EntryPrice:   sig.EdgeResult.MarketPriceYes,
				CurrentPrice: sig.EdgeResult.MarketPriceYes,
				SizeUSD:      sig.ProposedSizeUSD,
				Status:       domain.PositionOpen,
				OpenedAt:     time.Now().UTC(),
			}); err != nil {
				log.Warn().Err(err).Msg("failed to persist position")
			}
		}

		if state.TradesThisRun >= p.cfg.Risk.MaxTradesPerRun {
			log.Info().Msg("max trades per run reached, stopping")
			break
		}
	}

	// 5b. EXIT SWEEP — mark-to-market every open position and sell
	// anything that has crossed the configured exit threshold.
	exitPipeline := exit.New(p.cfg, p.db, p.prices, executor, runID, log)
	if exitSummary, err := exitPipeline.Run(); err != nil {
		log.Warn().Err(err).Msg("exit sweep failed")
	} else {
		log.Info().
			Int("positions_checked", exitSummary.PositionsChecked).
			Int("exits_executed", exitSummary.ExitsExecuted).
			Msg("exit sweep complete")
	}

	// 6. REPORT
	totalExposure, err := p.db.TotalExposure()
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute total exposure")
	}
	today := time.Now().UTC().Format("2006-01-02")
	dailyPnL, err := p.db.DailyLossSoFar(today)
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute daily loss")
	}
	sum.RecordExposure(totalExposure, dailyPnL)
	sum.RecordDuration(time.Since(start))
	final := sum.Finalize()

	if err := p.db.CompleteRun(runID, "completed", final.ToStoreSummary(), "", ""); err != nil {
		log.Warn().Err(err).Msg("failed to persist run completion")
	}

	log.Info().Msg(summary.FormatText(final))
	return final, nil
}

func (p *Pipeline) abort(runID string, sum *summary.Summarizer, start time.Time) (summary.Summary, error) {
	sum.RecordDuration(time.Since(start))
	final := sum.Finalize()
	if err := p.db.CompleteRun(runID, "aborted", final.ToStoreSummary(), "", ""); err != nil {
		p.log.Warn().Err(err).Msg("failed to persist aborted run")
	}
	return final, nil
}

func (p *Pipeline) fail(runID string, sum *summary.Summarizer, start time.Time, cause error) (summary.Summary, error) {
	sum.RecordError(cause)
	sum.RecordDuration(time.Since(start))
	final := sum.Finalize()
	if err := p.db.CompleteRun(runID, "failed", final.ToStoreSummary(), "", cause.Error()); err != nil {
		p.log.Warn().Err(err).Msg("failed to persist failed run")
	}
	return final, nil
}
