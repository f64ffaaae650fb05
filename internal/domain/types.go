// Package domain holds the core value types shared by the ingest, signal,
// risk, execution and exit packages. Keeping them here avoids import cycles
// between those packages and the database layer.
package domain

import "time"

// TemperatureUnit is the unit a Bucket's bounds are expressed in.
type TemperatureUnit string

const (
	UnitFahrenheit TemperatureUnit = "F"
	UnitCelsius    TemperatureUnit = "C"
)

// BucketType identifies the shape of a temperature bucket.
type BucketType string

const (
	BucketRange    BucketType = "range"
	BucketExact    BucketType = "exact"
	BucketOrHigher BucketType = "or_higher"
	BucketOrBelow  BucketType = "or_below"
)

// Bucket is one of four disjoint outcome shapes over the integer
// temperature domain. Low/High carry the same value for Exact, OrHigher
// and OrBelow buckets (the single threshold temperature).
type Bucket struct {
	Type BucketType
	Low  int
	High int
	Unit TemperatureUnit
}

// MarketEvent is a city x target-date grouping of BucketMarkets as
// returned by the markets API for one event slug.
type MarketEvent struct {
	EventID    string
	Slug       string
	CitySlug   string
	TargetDate string // YYYY-MM-DD
	Title      string
	Buckets    []BucketMarket
	RawJSON    []byte
}

// BucketMarket is a single tradeable outcome within a MarketEvent.
type BucketMarket struct {
	MarketID           string
	ConditionID        string
	ClobTokenIDYes     string
	ClobTokenIDNo      string
	OutcomePriceYes    float64
	BestBid            float64
	BestAsk            float64
	LastTradePrice     float64
	Liquidity          float64
	Volume24hr         float64
	MakerBaseFee       float64
	TakerBaseFee       float64
	OrderMinSize       float64
	AcceptingOrders    bool
	EndDate            string
	GroupItemTitle     string
	GroupItemThreshold string
	Bucket             Bucket
}

// ForecastPeriod is one raw period from the forecasts API response.
type ForecastPeriod struct {
	Name            string
	StartTime       string
	EndTime         string
	Temperature     int
	TemperatureUnit string
	IsDaytime       bool
	ShortForecast   string
}

// ForecastPoint is the resolved daytime-high forecast for one
// (city, target_date) pair.
type ForecastPoint struct {
	CitySlug           string
	TargetDate         string
	HighTempF          int
	SourceGeneratedAt  string
	FetchedAt          time.Time
	RawPeriods         []ForecastPeriod
}

// ReasonCode classifies why an EdgeResult is or is not an opportunity.
type ReasonCode string

const (
	ReasonOpportunity         ReasonCode = "OPPORTUNITY"
	ReasonEdgeBelowThreshold  ReasonCode = "EDGE_BELOW_THRESHOLD"
	ReasonPriceAboveMaxEntry  ReasonCode = "PRICE_ABOVE_MAX_ENTRY"
	ReasonNegativeEdge        ReasonCode = "NEGATIVE_EDGE"
	ReasonNotAcceptingOrders  ReasonCode = "NOT_ACCEPTING_ORDERS"
	ReasonZeroLiquidity       ReasonCode = "ZERO_LIQUIDITY"
	ReasonNoForecastAvailable ReasonCode = "NO_FORECAST_AVAILABLE"
	ReasonStaleForecastData   ReasonCode = "STALE_FORECAST_DATA"
	ReasonStaleMarketData     ReasonCode = "STALE_MARKET_DATA"
	ReasonBucketParseError    ReasonCode = "BUCKET_PARSE_ERROR"
)

// EdgeResult is the per-(run, market) output of the signal generator.
type EdgeResult struct {
	RunID              string
	EventID            string
	MarketID           string
	CitySlug           string
	TargetDate         string
	BucketLabel        string
	BucketProbability  float64
	MarketPriceYes     float64
	GrossEdge          float64
	FeeEstimate        float64
	SlippageEstimate   float64
	NetEdge            float64
	ReasonCode         ReasonCode
	SigmaUsed          float64
}

// Signal is a promoted EdgeResult (ReasonCode == ReasonOpportunity) with a
// proposed order size.
type Signal struct {
	EdgeResult       EdgeResult
	MarketID         string
	ClobTokenIDYes   string
	ProposedSizeUSD  float64
}

// OrderSide is BUY or SELL.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus is the terminal (or pending) state of an OrderResult.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusDryRun    OrderStatus = "DRY_RUN"
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusFilled    OrderStatus = "FILLED"
	StatusRejected  OrderStatus = "REJECTED"
	StatusFailed    OrderStatus = "FAILED"
	StatusDuplicate OrderStatus = "DUPLICATE"
)

// OrderIntent is the pre-execution record keyed by IdempotencyKey.
type OrderIntent struct {
	RunID           string
	IdempotencyKey  string
	MarketID        string
	ClobTokenID     string
	Side            OrderSide
	Price           float64
	SizeUSD         float64
	CitySlug        string
	TargetDate      string
	BucketLabel     string
	NetEdge         float64
	CreatedAt       time.Time
}

// OrderResult is the terminal outcome of dispatching an OrderIntent.
type OrderResult struct {
	IdempotencyKey string
	Status         OrderStatus
	FillPrice      *float64
	FillSize       *float64
	ErrorMessage   string
	ExecutedAt     time.Time
}

// PositionStatus is open or closed.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is a held (or previously held) bucket market position.
type Position struct {
	ID             int64
	MarketID       string
	CitySlug       string
	TargetDate     string
	BucketLabel    string
	EntryPrice     float64
	CurrentPrice   float64
	SizeUSD        float64
	UnrealizedPnL  float64
	Status         PositionStatus
	OpenedAt       time.Time
	ClosedAt       *time.Time
}

// BlockReason mirrors the RiskCheck's check_name for the single failing
// predicate (empty when the check passed).
type BlockReason string

const (
	BlockKillSwitch         BlockReason = "KILL_SWITCH"
	BlockPaused             BlockReason = "PAUSED"
	BlockPositionSize       BlockReason = "POSITION_SIZE"
	BlockTradesPerRun       BlockReason = "TRADES_PER_RUN"
	BlockTotalExposure      BlockReason = "TOTAL_EXPOSURE"
	BlockPerCityExposure    BlockReason = "PER_CITY_EXPOSURE"
	BlockDailyLoss          BlockReason = "DAILY_LOSS"
	BlockCooldown           BlockReason = "COOLDOWN"
	BlockTimeToResolution   BlockReason = "TIME_TO_RESOLUTION"
	BlockSlippage           BlockReason = "SLIPPAGE"
)

// RiskCheckResult is the outcome of exactly one of the ten fixed risk checks.
type RiskCheckResult struct {
	CheckName   string
	Passed      bool
	BlockReason BlockReason // empty when Passed
	Detail      string
}

// RiskVerdict is the aggregate of all ten RiskCheckResults for one
// candidate signal. Approved iff every check passed.
type RiskVerdict struct {
	Approved bool
	Checks   []RiskCheckResult
}

// BlockReasons returns the BlockReason of every failing check, in check
// order, for logging/reporting.
func (v RiskVerdict) BlockReasons() []BlockReason {
	var reasons []BlockReason
	for _, c := range v.Checks {
		if !c.Passed {
			reasons = append(reasons, c.BlockReason)
		}
	}
	return reasons
}

// ExecutionMode selects whether the executor commits live orders.
type ExecutionMode string

const (
	ModeDryRun ExecutionMode = "dry-run"
	ModeLive   ExecutionMode = "live"
)

// ControlFlags is the small process-wide mutable state that gates every
// order submission.
type ControlFlags struct {
	Mode        ExecutionMode
	Paused      bool
	KillSwitch  bool
}

// BrokerAdapter is the single seam between the executor and an external
// brokerage. Exactly one live implementation and one dry-run
// implementation satisfy this in the running system.
type BrokerAdapter interface {
	Execute(intent OrderIntent) (OrderResult, error)
}
