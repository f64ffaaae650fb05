package risk

import (
	"time"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
)

// Engine evaluates every candidate signal against the ten fixed checks.
type Engine struct {
	cfg   config.RiskConfig
	state *StateTracker
	now   func() time.Time
}

// NewEngine binds an Engine to a run's risk configuration and state.
func NewEngine(cfg config.RiskConfig, state *StateTracker) *Engine {
	return &Engine{cfg: cfg, state: state, now: time.Now}
}

// Evaluate runs all ten checks for one signal against a market's end date
// (for the time-to-resolution check) and its best bid/ask (for slippage).
// No check ever short-circuits another: every check result is computed and
// returned regardless of earlier failures, so the full audit trail is
// always available to persist.
func (e *Engine) Evaluate(signal domain.Signal, marketEndDate string, bestBid, bestAsk float64) (domain.RiskVerdict, error) {
	now := e.now()

	killSwitch, err := e.state.KillSwitchActive()
	if err != nil {
		return domain.RiskVerdict{}, err
	}
	paused, err := e.state.IsPaused()
	if err != nil {
		return domain.RiskVerdict{}, err
	}
	totalExposure, err := e.state.TotalExposure()
	if err != nil {
		return domain.RiskVerdict{}, err
	}
	cityExposure, err := e.state.CityExposure(signal.EdgeResult.CitySlug)
	if err != nil {
		return domain.RiskVerdict{}, err
	}
	dailyLoss, err := e.state.DailyLoss(now)
	if err != nil {
		return domain.RiskVerdict{}, err
	}
	minutesSinceLastTrade, err := e.state.MinutesSinceLastTrade(signal.MarketID, now)
	if err != nil {
		return domain.RiskVerdict{}, err
	}

	checks := []domain.RiskCheckResult{
		checkKillSwitch(killSwitch),
		checkPaused(paused),
		checkPositionSize(signal.ProposedSizeUSD, e.cfg.MaxPositionSizeUSD),
		checkTradesPerRun(e.state.TradesThisRun, e.cfg.MaxTradesPerRun),
		checkTotalExposure(totalExposure, signal.ProposedSizeUSD, e.cfg.MaxTotalExposureUSD),
		checkPerCityExposure(cityExposure, signal.ProposedSizeUSD, e.cfg.MaxPerCityExposureUSD),
		checkDailyLoss(dailyLoss, e.cfg.MaxDailyLossUSD),
		checkCooldown(minutesSinceLastTrade, e.cfg.CooldownMinutes),
		checkTimeToResolution(hoursToResolution(marketEndDate, now), e.cfg.MinHoursToResolution),
		checkSlippage(bestBid, bestAsk, e.cfg.SlippageCeiling),
	}

	approved := true
	for _, c := range checks {
		if !c.Passed {
			approved = false
		}
	}
	return domain.RiskVerdict{Approved: approved, Checks: checks}, nil
}

// hoursToResolution computes hours until a market's end date, parsed as
// RFC3339; malformed or unparseable timestamps resolve to zero hours so
// the time_to_resolution check blocks rather than silently passing.
func hoursToResolution(endDateStr string, now time.Time) float64 {
	end, err := time.Parse(time.RFC3339, endDateStr)
	if err != nil {
		return 0.0
	}
	hours := end.Sub(now.UTC()).Hours()
	if hours < 0 {
		return 0.0
	}
	return hours
}
