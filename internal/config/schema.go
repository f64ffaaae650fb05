// Package config loads and validates the engine's typed configuration:
// an env/.env bootstrap for data-directory and secrets, layered with a
// strict-schema YAML file for the strategy/risk/execution/ops/cities
// tree. Unknown keys anywhere in the YAML document are a load error,
// mirroring the original extra="forbid" Pydantic schema.
package config

// ExecutionMode selects dry-run or live order submission.
type ExecutionMode string

const (
	ExecutionDryRun ExecutionMode = "dry-run"
	ExecutionLive   ExecutionMode = "live"
)

// ExecutionAdapter names which BrokerAdapter implementation backs the
// executor.
type ExecutionAdapter string

const (
	AdapterDryRun ExecutionAdapter = "dry-run"
	AdapterVenue  ExecutionAdapter = "venue"
)

// CityConfig is one enabled/disabled polling target with its forecast
// gridpoint coordinates.
type CityConfig struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	GridID      string `yaml:"grid_id"`
	GridX       int    `yaml:"grid_x"`
	GridY       int    `yaml:"grid_y"`
	Enabled     bool   `yaml:"enabled"`
}

// StrategyConfig governs signal generation thresholds.
type StrategyConfig struct {
	MinEdgeThreshold   float64 `yaml:"min_edge_threshold"`
	MaxEntryPrice      float64 `yaml:"max_entry_price"`
	MinExitPrice       float64 `yaml:"min_exit_price"`
	UncertaintyBaseF   float64 `yaml:"uncertainty_base_f"`
	UncertaintyPerDayF float64 `yaml:"uncertainty_per_day_f"`
	FeeEstimate        float64 `yaml:"fee_estimate"`
	SlippageEstimate   float64 `yaml:"slippage_estimate"`
}

// RiskConfig governs the ten pre-trade risk checks.
type RiskConfig struct {
	MaxPositionSizeUSD     float64 `yaml:"max_position_size_usd"`
	MaxTradesPerRun        int     `yaml:"max_trades_per_run"`
	MaxTotalExposureUSD    float64 `yaml:"max_total_exposure_usd"`
	MaxPerCityExposureUSD  float64 `yaml:"max_per_city_exposure_usd"`
	MaxDailyLossUSD        float64 `yaml:"max_daily_loss_usd"`
	CooldownMinutes        int     `yaml:"cooldown_minutes"`
	MinHoursToResolution   float64 `yaml:"min_hours_to_resolution"`
	SlippageCeiling        float64 `yaml:"slippage_ceiling"`
}

// ExecutionConfig selects the trading mode and adapter/venue. BaseURL
// and APIKey are only consulted by the venue adapter in live mode; a
// dry-run deployment can leave them empty.
type ExecutionConfig struct {
	Mode    ExecutionMode    `yaml:"mode"`
	Adapter ExecutionAdapter `yaml:"adapter"`
	Venue   string           `yaml:"venue"`
	BaseURL string           `yaml:"base_url"`
	APIKey  string           `yaml:"api_key"`
}

// OpsConfig governs scheduling cadence and staleness ceilings.
type OpsConfig struct {
	ScanIntervalMinutes       int `yaml:"scan_interval_minutes"`
	ForecastMaxAgeMinutes     int `yaml:"forecast_max_age_minutes"`
	MarketDataMaxAgeMinutes   int `yaml:"market_data_max_age_minutes"`
	LookaheadDays             int `yaml:"lookahead_days"`
	RequestDelayMs            int `yaml:"request_delay_ms"`
}

// BackupConfig governs optional periodic off-box snapshotting of the
// state store to S3-compatible object storage. Disabled by default: a
// single-instance daemon on a single box has no replication requirement
// until an operator opts in.
type BackupConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Schedule        string `yaml:"schedule"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	RetentionDays   int    `yaml:"retention_days"`
}

// Config is the full typed configuration tree.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Execution ExecutionConfig `yaml:"execution"`
	Ops      OpsConfig      `yaml:"ops"`
	Backup   BackupConfig   `yaml:"backup"`
	Cities   []CityConfig   `yaml:"cities"`

	// DataDir, PIDFile, LogDir, DBPath are resolved from the environment,
	// not the YAML document, and are never part of the content hash.
	DataDir string `yaml:"-"`
	PIDFile string `yaml:"-"`
	LogDir  string `yaml:"-"`
	DBPath  string `yaml:"-"`
}

// Default returns the zero-value-filled Config matching the original
// schema's field defaults.
func Default() Config {
	return Config{
		Strategy: StrategyConfig{
			MinEdgeThreshold:   0.05,
			MaxEntryPrice:      0.15,
			MinExitPrice:       0.45,
			UncertaintyBaseF:   2.5,
			UncertaintyPerDayF: 0.5,
			FeeEstimate:        0.02,
			SlippageEstimate:   0.01,
		},
		Risk: RiskConfig{
			MaxPositionSizeUSD:    5.0,
			MaxTradesPerRun:       3,
			MaxTotalExposureUSD:   25.0,
			MaxPerCityExposureUSD: 10.0,
			MaxDailyLossUSD:       10.0,
			CooldownMinutes:       30,
			MinHoursToResolution:  6.0,
			SlippageCeiling:       0.05,
		},
		Execution: ExecutionConfig{
			Mode:    ExecutionDryRun,
			Adapter: AdapterDryRun,
			Venue:   "default",
		},
		Ops: OpsConfig{
			ScanIntervalMinutes:     60,
			ForecastMaxAgeMinutes:   360,
			MarketDataMaxAgeMinutes: 30,
			LookaheadDays:           7,
			RequestDelayMs:          200,
		},
		Backup: BackupConfig{
			Enabled:       false,
			Schedule:      "@every 6h",
			RetentionDays: 14,
		},
		Cities: DefaultCities(),
	}
}
