package domain

import "time"

// MetricKind identifies one of the engine's metric computations. It is part
// of every cache key so results of different kinds can never collide.
type MetricKind string

const (
	MetricVWAP          MetricKind = "vwap"
	MetricEMA           MetricKind = "ema"
	MetricDelta         MetricKind = "delta"
	MetricFloor         MetricKind = "floor"
	MetricSpread        MetricKind = "spread"
	MetricPriceToSale   MetricKind = "price_to_sale"
	MetricTimeSeries    MetricKind = "time_series"
	MetricComprehensive MetricKind = "comprehensive"
)

// Every metric result models its own "no data" case explicitly: nil-valued
// pointer fields with SampleSize (or an equivalent count) of zero. A zero
// sample size is a well-defined result, never a computation failure, and is
// always distinguishable from a computed zero.

// VWAPResult is the volume-weighted average price over a period.
type VWAPResult struct {
	Value      *float64 `json:"value"`
	SampleSize int      `json:"sample_size"`
	Period     Period   `json:"period"`
	ComputedAt time.Time `json:"computed_at"`
}

// EMAResult is the exponential moving average over daily price points.
type EMAResult struct {
	Value       *float64  `json:"value"`
	Window      int       `json:"window"`
	DailyPoints int       `json:"daily_points"`
	SampleSize  int       `json:"sample_size"`
	ComputedAt  time.Time `json:"computed_at"`
}

// DeltaResult is the change in reference price over a period. Each reference
// price is a VWAP over a short boundary window rather than a single tick.
type DeltaResult struct {
	Amount          *float64  `json:"amount"`
	Percent         *float64  `json:"percent"`
	Current         *float64  `json:"current"`
	Previous        *float64  `json:"previous"`
	CurrentSamples  int       `json:"current_samples"`
	PreviousSamples int       `json:"previous_samples"`
	Period          Period    `json:"period"`
	ComputedAt      time.Time `json:"computed_at"`
}

// FloorEntry is one qualifying partition of a floor-price computation.
type FloorEntry struct {
	Key        string  `json:"key"`
	Floor      float64 `json:"floor"`
	Average    float64 `json:"average"`
	SampleSize int     `json:"sample_size"`
}

// FloorResult lists floor prices by partition. Partitions below the
// minimum-sales threshold are omitted entirely, not returned as null.
// Entries are sorted by key for determinism.
type FloorResult struct {
	Entries    []FloorEntry `json:"entries"`
	GroupMode  GroupMode    `json:"group_mode"`
	Period     Period       `json:"period"`
	MinSales   int          `json:"min_sales"`
	SampleSize int          `json:"sample_size"`
	ComputedAt time.Time    `json:"computed_at"`
}

// SpreadResult is the gap between best bid and best ask on the current
// listing snapshot. A one-sided or missing market yields nil values;
// Percent is additionally nil when the bid is zero.
type SpreadResult struct {
	Bid        *float64   `json:"bid"`
	Ask        *float64   `json:"ask"`
	Amount     *float64   `json:"amount"`
	Percent    *float64   `json:"percent"`
	CapturedAt *time.Time `json:"captured_at"`
	ComputedAt time.Time  `json:"computed_at"`
}

// RatioResult is the current ask price relative to the period VWAP.
type RatioResult struct {
	Ratio      *float64  `json:"ratio"`
	Ask        *float64  `json:"ask"`
	VWAP       *float64  `json:"vwap"`
	Period     Period    `json:"period"`
	ComputedAt time.Time `json:"computed_at"`
}

// TimeSeriesBucket is one interval-aligned bucket of a price series. Buckets
// with no observations carry nil prices and a zero count so the series stays
// gap-free for charting.
type TimeSeriesBucket struct {
	Start   time.Time `json:"start"`
	VWAP    *float64  `json:"vwap"`
	Floor   *float64  `json:"floor"`
	Ceiling *float64  `json:"ceiling"`
	Count   int       `json:"count"`
}

// TimeSeriesResult is an ordered, gap-free sequence of price buckets,
// ascending by bucket start.
type TimeSeriesResult struct {
	Interval   Interval           `json:"interval"`
	Buckets    []TimeSeriesBucket `json:"buckets"`
	SampleSize int                `json:"sample_size"`
	ComputedAt time.Time          `json:"computed_at"`
}

// ComprehensiveMetrics bundles every per-card metric computed from a single
// shared observation fetch. Sub-metrics that legitimately have no data keep
// their null form; the bundle as a whole never fails for partial data.
type ComprehensiveMetrics struct {
	CardID      string       `json:"card_id"`
	Period      Period       `json:"period"`
	VWAP        VWAPResult   `json:"vwap"`
	EMA7        EMAResult    `json:"ema_7d"`
	EMA14       EMAResult    `json:"ema_14d"`
	EMA30       EMAResult    `json:"ema_30d"`
	Delta1D     DeltaResult  `json:"delta_1d"`
	DeltaPeriod DeltaResult  `json:"delta_period"`
	Floor       FloorResult  `json:"floor"`
	Spread      SpreadResult `json:"spread"`
	PriceToSale RatioResult  `json:"price_to_sale"`
	ComputedAt  time.Time    `json:"computed_at"`
}

// Float64Ptr returns a pointer to v. Convenience for building results.
func Float64Ptr(v float64) *float64 { return &v }
