package config

import "fmt"

// Validate enforces the numeric bounds the original schema carried as
// Pydantic Field constraints.
func Validate(cfg Config) error {
	s := cfg.Strategy
	if s.MinEdgeThreshold < 0 || s.MinEdgeThreshold > 1 {
		return fmt.Errorf("strategy.min_edge_threshold must be in [0,1]")
	}
	if s.MaxEntryPrice < 0 || s.MaxEntryPrice > 1 {
		return fmt.Errorf("strategy.max_entry_price must be in [0,1]")
	}
	if s.MinExitPrice < 0 || s.MinExitPrice > 1 {
		return fmt.Errorf("strategy.min_exit_price must be in [0,1]")
	}
	if s.UncertaintyBaseF <= 0 {
		return fmt.Errorf("strategy.uncertainty_base_f must be > 0")
	}
	if s.UncertaintyPerDayF < 0 {
		return fmt.Errorf("strategy.uncertainty_per_day_f must be >= 0")
	}
	if s.FeeEstimate < 0 || s.FeeEstimate > 1 {
		return fmt.Errorf("strategy.fee_estimate must be in [0,1]")
	}
	if s.SlippageEstimate < 0 || s.SlippageEstimate > 1 {
		return fmt.Errorf("strategy.slippage_estimate must be in [0,1]")
	}

	r := cfg.Risk
	if r.MaxPositionSizeUSD <= 0 {
		return fmt.Errorf("risk.max_position_size_usd must be > 0")
	}
	if r.MaxTradesPerRun < 1 {
		return fmt.Errorf("risk.max_trades_per_run must be >= 1")
	}
	if r.MaxTotalExposureUSD <= 0 {
		return fmt.Errorf("risk.max_total_exposure_usd must be > 0")
	}
	if r.MaxPerCityExposureUSD <= 0 {
		return fmt.Errorf("risk.max_per_city_exposure_usd must be > 0")
	}
	if r.MaxDailyLossUSD <= 0 {
		return fmt.Errorf("risk.max_daily_loss_usd must be > 0")
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("risk.cooldown_minutes must be >= 0")
	}
	if r.MinHoursToResolution < 0 {
		return fmt.Errorf("risk.min_hours_to_resolution must be >= 0")
	}
	if r.SlippageCeiling < 0 || r.SlippageCeiling > 1 {
		return fmt.Errorf("risk.slippage_ceiling must be in [0,1]")
	}

	if cfg.Execution.Mode != ExecutionDryRun && cfg.Execution.Mode != ExecutionLive {
		return fmt.Errorf("execution.mode must be dry-run or live")
	}

	o := cfg.Ops
	if o.ScanIntervalMinutes < 1 {
		return fmt.Errorf("ops.scan_interval_minutes must be >= 1")
	}
	if o.ForecastMaxAgeMinutes < 1 {
		return fmt.Errorf("ops.forecast_max_age_minutes must be >= 1")
	}
	if o.MarketDataMaxAgeMinutes < 1 {
		return fmt.Errorf("ops.market_data_max_age_minutes must be >= 1")
	}
	if o.LookaheadDays < 1 || o.LookaheadDays > 14 {
		return fmt.Errorf("ops.lookahead_days must be in [1,14]")
	}
	if o.RequestDelayMs < 0 {
		return fmt.Errorf("ops.request_delay_ms must be >= 0")
	}

	if cfg.Backup.Enabled {
		if cfg.Backup.Bucket == "" {
			return fmt.Errorf("backup.bucket is required when backup.enabled is true")
		}
		if cfg.Backup.RetentionDays < 0 {
			return fmt.Errorf("backup.retention_days must be >= 0")
		}
	}

	seen := map[string]bool{}
	for _, c := range cfg.Cities {
		if c.Slug == "" {
			return fmt.Errorf("cities: slug must not be empty")
		}
		if seen[c.Slug] {
			return fmt.Errorf("cities: duplicate slug %q", c.Slug)
		}
		seen[c.Slug] = true
	}

	return nil
}
