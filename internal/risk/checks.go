// Package risk implements the ten fixed-order, never-short-circuiting
// pre-trade checks every candidate signal is evaluated against.
package risk

import (
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

func checkKillSwitch(active bool) domain.RiskCheckResult {
	if active {
		return fail("kill_switch", domain.BlockKillSwitch, "kill switch is active")
	}
	return pass("kill_switch")
}

func checkPaused(paused bool) domain.RiskCheckResult {
	if paused {
		return fail("paused", domain.BlockPaused, "system is paused")
	}
	return pass("paused")
}

func checkPositionSize(proposedSizeUSD, maxPositionSizeUSD float64) domain.RiskCheckResult {
	if proposedSizeUSD > maxPositionSizeUSD {
		return fail("position_size", domain.BlockPositionSize,
			fmt.Sprintf("$%.2f > limit $%.2f", proposedSizeUSD, maxPositionSizeUSD))
	}
	return pass("position_size")
}

func checkTradesPerRun(tradesThisRun, maxTradesPerRun int) domain.RiskCheckResult {
	if tradesThisRun >= maxTradesPerRun {
		return fail("trades_per_run", domain.BlockTradesPerRun,
			fmt.Sprintf("%d >= limit %d", tradesThisRun, maxTradesPerRun))
	}
	return pass("trades_per_run")
}

func checkTotalExposure(currentExposureUSD, proposedSizeUSD, maxTotalExposureUSD float64) domain.RiskCheckResult {
	newTotal := currentExposureUSD + proposedSizeUSD
	if newTotal > maxTotalExposureUSD {
		return fail("total_exposure", domain.BlockTotalExposure,
			fmt.Sprintf("$%.2f > limit $%.2f", newTotal, maxTotalExposureUSD))
	}
	return pass("total_exposure")
}

func checkPerCityExposure(cityExposureUSD, proposedSizeUSD, maxPerCityExposureUSD float64) domain.RiskCheckResult {
	newTotal := cityExposureUSD + proposedSizeUSD
	if newTotal > maxPerCityExposureUSD {
		return fail("per_city_exposure", domain.BlockPerCityExposure,
			fmt.Sprintf("$%.2f > limit $%.2f", newTotal, maxPerCityExposureUSD))
	}
	return pass("per_city_exposure")
}

func checkDailyLoss(dailyLossUSD, maxDailyLossUSD float64) domain.RiskCheckResult {
	if dailyLossUSD > maxDailyLossUSD {
		return fail("daily_loss", domain.BlockDailyLoss,
			fmt.Sprintf("$%.2f > limit $%.2f", dailyLossUSD, maxDailyLossUSD))
	}
	return pass("daily_loss")
}

// checkCooldown uses a nil minutesSinceLastTrade to mean "no prior trade on
// this market", which always passes.
func checkCooldown(minutesSinceLastTrade *float64, cooldownMinutes int) domain.RiskCheckResult {
	if minutesSinceLastTrade != nil && *minutesSinceLastTrade < float64(cooldownMinutes) {
		return fail("cooldown", domain.BlockCooldown,
			fmt.Sprintf("%.1fmin < %dmin cooldown", *minutesSinceLastTrade, cooldownMinutes))
	}
	return pass("cooldown")
}

func checkTimeToResolution(hoursToResolution, minHours float64) domain.RiskCheckResult {
	if hoursToResolution < minHours {
		return fail("time_to_resolution", domain.BlockTimeToResolution,
			fmt.Sprintf("%.1fh < %.1fh minimum", hoursToResolution, minHours))
	}
	return pass("time_to_resolution")
}

func checkSlippage(bestBid, bestAsk, slippageCeiling float64) domain.RiskCheckResult {
	if bestBid <= 0 {
		return fail("slippage", domain.BlockSlippage, "best bid is zero or negative")
	}
	spread := (bestAsk - bestBid) / bestBid
	if spread > slippageCeiling {
		return fail("slippage", domain.BlockSlippage,
			fmt.Sprintf("spread %.4f > ceiling %.4f", spread, slippageCeiling))
	}
	return pass("slippage")
}

func pass(name string) domain.RiskCheckResult {
	return domain.RiskCheckResult{CheckName: name, Passed: true, Detail: "ok"}
}

func fail(name string, reason domain.BlockReason, detail string) domain.RiskCheckResult {
	return domain.RiskCheckResult{CheckName: name, Passed: false, BlockReason: reason, Detail: detail}
}
