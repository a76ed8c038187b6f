// Package service composes stores, caches, and the pricing primitives into
// the engine's metric operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/pricing"
)

const (
	defaultCacheTTL      = 5 * time.Minute
	defaultDeltaBoundary = 24 * time.Hour
	defaultMinSales      = 3
)

// EngineOptions tunes metric computation. Zero values fall back to the
// package defaults.
type EngineOptions struct {
	// CacheTTL bounds the staleness of memoized results.
	CacheTTL time.Duration
	// DeltaBoundary is the width of the reference windows at each end of a
	// delta period.
	DeltaBoundary time.Duration
	// MinSales is the floor-price threshold used when the caller does not
	// specify one.
	MinSales int
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
	if o.DeltaBoundary <= 0 {
		o.DeltaBoundary = defaultDeltaBoundary
	}
	if o.MinSales <= 0 {
		o.MinSales = defaultMinSales
	}
	return o
}

// MetricsService computes per-card market metrics, memoizing results in the
// metric cache. Computations are read-only and idempotent, so concurrent
// misses for the same key may each compute independently.
type MetricsService struct {
	cards    domain.CardStore
	obs      domain.ObservationStore
	listings domain.ListingStore
	cache    domain.MetricCache
	logger   *slog.Logger
	opts     EngineOptions

	// now is swapped in tests for deterministic windows.
	now func() time.Time
}

// NewMetricsService creates a MetricsService with all required dependencies.
func NewMetricsService(
	cards domain.CardStore,
	obs domain.ObservationStore,
	listings domain.ListingStore,
	cache domain.MetricCache,
	logger *slog.Logger,
	opts EngineOptions,
) *MetricsService {
	return &MetricsService{
		cards:    cards,
		obs:      obs,
		listings: listings,
		cache:    cache,
		logger:   logger,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// ensureCard verifies the card exists before any metric is computed, so an
// unknown card is reported as such rather than as an empty result.
func (s *MetricsService) ensureCard(ctx context.Context, cardID string) error {
	if cardID == "" {
		return fmt.Errorf("metrics_service: %w: card id required", domain.ErrInvalidParameter)
	}
	if _, err := s.cards.GetByID(ctx, cardID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("metrics_service: card %s: %w", cardID, domain.ErrNotFound)
		}
		return fmt.Errorf("metrics_service: card lookup: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// fetchObs loads a card's observations bounded below by since (nil means
// unbounded). Store failures become ErrStoreUnavailable and are never
// cached.
func (s *MetricsService) fetchObs(ctx context.Context, cardID string, f domain.ObservationFilter, since *time.Time) ([]domain.PriceObservation, error) {
	obs, err := s.obs.ListByCard(ctx, cardID, f, domain.TimeRange{Since: since})
	if err != nil {
		return nil, fmt.Errorf("metrics_service: list observations: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return obs, nil
}

// fetchObsByProductType loads observations across every card of a product
// type for aggregate-scope metrics. Store failures become
// ErrStoreUnavailable and are never cached.
func (s *MetricsService) fetchObsByProductType(ctx context.Context, pt domain.ProductType, f domain.ObservationFilter, since *time.Time) ([]domain.PriceObservation, error) {
	obs, err := s.obs.ListByProductType(ctx, pt, f, domain.TimeRange{Since: since})
	if err != nil {
		return nil, fmt.Errorf("metrics_service: list observations by product type: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return obs, nil
}

// cacheGet returns true when the key was present and dest is populated.
// Cache failures degrade to a miss.
func (s *MetricsService) cacheGet(ctx context.Context, key string, dest any) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "metrics_service: cache get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return false
}

// cachePut memoizes a successfully computed result. Failures are logged and
// otherwise ignored; the result is still returned to the caller.
func (s *MetricsService) cachePut(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		s.logger.WarnContext(ctx, "metrics_service: cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// sinceFor converts a period to a store lower bound, padded by extra to
// cover reference windows that reach past the period start.
func sinceFor(period domain.Period, extra time.Duration, now time.Time) *time.Time {
	start, ok := period.Start(now)
	if !ok {
		return nil
	}
	t := start.Add(-extra)
	return &t
}

// VWAP computes the volume-weighted average price over a period.
func (s *MetricsService) VWAP(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.VWAPResult, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.VWAPResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.VWAPResult{}, err
	}

	key := metricCacheKey(domain.MetricVWAP, cardID, f, "period="+string(period))
	var res domain.VWAPResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObs(ctx, cardID, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.VWAPResult{}, err
	}

	res = pricing.VWAP(obs, period, now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// EMA computes the exponential moving average over the given window in days.
func (s *MetricsService) EMA(ctx context.Context, cardID string, window int, f domain.ObservationFilter) (domain.EMAResult, error) {
	if !domain.ValidEMAWindow(window) {
		return domain.EMAResult{}, fmt.Errorf("metrics_service: %w: unsupported ema window %d", domain.ErrInvalidParameter, window)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.EMAResult{}, err
	}

	key := metricCacheKey(domain.MetricEMA, cardID, f, "window="+strconv.Itoa(window))
	var res domain.EMAResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	since := now.Add(-time.Duration(window) * 24 * time.Hour)
	obs, err := s.fetchObs(ctx, cardID, f, &since)
	if err != nil {
		return domain.EMAResult{}, err
	}

	res = pricing.EMA(obs, window, now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// Delta computes the change in reference price over a period.
func (s *MetricsService) Delta(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.DeltaResult, error) {
	if !domain.ValidDeltaPeriod(period) {
		return domain.DeltaResult{}, fmt.Errorf("metrics_service: %w: unsupported delta period %q", domain.ErrInvalidParameter, period)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.DeltaResult{}, err
	}

	key := metricCacheKey(domain.MetricDelta, cardID, f, "period="+string(period))
	var res domain.DeltaResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	// The previous reference window reaches one boundary width past the
	// period start, so pad the fetch accordingly.
	obs, err := s.fetchObs(ctx, cardID, f, sinceFor(period, s.opts.DeltaBoundary, now))
	if err != nil {
		return domain.DeltaResult{}, err
	}

	res = pricing.Delta(obs, period, s.opts.DeltaBoundary, now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// Floor computes per-partition floor prices. A zero minSales falls back to
// the configured default; negative values are rejected.
func (s *MetricsService) Floor(ctx context.Context, cardID string, period domain.Period, mode domain.GroupMode, minSales int, f domain.ObservationFilter) (domain.FloorResult, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.FloorResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if minSales == 0 {
		minSales = s.opts.MinSales
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.FloorResult{}, err
	}

	key := metricCacheKey(domain.MetricFloor, cardID, f,
		"period="+string(period),
		"group="+string(mode),
		"min="+strconv.Itoa(minSales),
	)
	var res domain.FloorResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObs(ctx, cardID, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.FloorResult{}, err
	}

	res, err = pricing.Floor(obs, period, mode, minSales, now)
	if err != nil {
		return domain.FloorResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	s.cachePut(ctx, key, res)
	return res, nil
}

// FloorByProductType computes per-partition floor prices across every card
// of a product type, e.g. the market-wide Box floor. Aggregate keys carry
// the product-type scope so they never collide with per-card entries.
func (s *MetricsService) FloorByProductType(ctx context.Context, pt domain.ProductType, period domain.Period, mode domain.GroupMode, minSales int, f domain.ObservationFilter) (domain.FloorResult, error) {
	pt, err := domain.ParseProductType(string(pt))
	if err != nil {
		return domain.FloorResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.FloorResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if minSales == 0 {
		minSales = s.opts.MinSales
	}

	key := metricCacheKey(domain.MetricFloor, productScope(pt), f,
		"period="+string(period),
		"group="+string(mode),
		"min="+strconv.Itoa(minSales),
	)
	var res domain.FloorResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObsByProductType(ctx, pt, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.FloorResult{}, err
	}

	res, err = pricing.Floor(obs, period, mode, minSales, now)
	if err != nil {
		return domain.FloorResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	s.cachePut(ctx, key, res)
	return res, nil
}

// Spread reports the current bid/ask spread from the latest listing
// snapshot. A card with no snapshot yields a null spread, not an error.
func (s *MetricsService) Spread(ctx context.Context, cardID string, f domain.ObservationFilter) (domain.SpreadResult, error) {
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.SpreadResult{}, err
	}

	key := metricCacheKey(domain.MetricSpread, cardID, f)
	var res domain.SpreadResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	snap, err := s.currentSnapshot(ctx, cardID, f)
	if err != nil {
		return domain.SpreadResult{}, err
	}

	res = pricing.Spread(snap, s.now())
	s.cachePut(ctx, key, res)
	return res, nil
}

// PriceToSale computes the ask-to-VWAP ratio over a period.
func (s *MetricsService) PriceToSale(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.RatioResult, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.RatioResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.RatioResult{}, err
	}

	key := metricCacheKey(domain.MetricPriceToSale, cardID, f, "period="+string(period))
	var res domain.RatioResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObs(ctx, cardID, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.RatioResult{}, err
	}
	snap, err := s.currentSnapshot(ctx, cardID, f)
	if err != nil {
		return domain.RatioResult{}, err
	}

	var ask *float64
	if snap != nil {
		ask = snap.BestAsk
	}
	res = pricing.PriceToSale(ask, pricing.VWAP(obs, period, now), now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// TimeSeries computes a gap-free bucketed price series over a period. For
// the unbounded period the series is anchored at the earliest observation.
func (s *MetricsService) TimeSeries(ctx context.Context, cardID string, period domain.Period, interval domain.Interval, f domain.ObservationFilter) (domain.TimeSeriesResult, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.TimeSeriesResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if _, err := domain.ParseInterval(string(interval)); err != nil {
		return domain.TimeSeriesResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.TimeSeriesResult{}, err
	}

	key := metricCacheKey(domain.MetricTimeSeries, cardID, f,
		"period="+string(period),
		"interval="+string(interval),
	)
	var res domain.TimeSeriesResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObs(ctx, cardID, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.TimeSeriesResult{}, err
	}

	from, ok := period.Start(now)
	if !ok {
		if earliest, found := earliestObservation(obs); found {
			from = earliest
		} else {
			from = now
		}
	}

	res = pricing.TimeSeries(obs, interval, from, now, now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// TimeSeriesByProductType returns a bucketed price series aggregated across
// every card of a product type.
func (s *MetricsService) TimeSeriesByProductType(ctx context.Context, pt domain.ProductType, period domain.Period, interval domain.Interval, f domain.ObservationFilter) (domain.TimeSeriesResult, error) {
	pt, err := domain.ParseProductType(string(pt))
	if err != nil {
		return domain.TimeSeriesResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.TimeSeriesResult{}, fmt.Errorf("metrics_service: %w", err)
	}
	if _, err := domain.ParseInterval(string(interval)); err != nil {
		return domain.TimeSeriesResult{}, fmt.Errorf("metrics_service: %w", err)
	}

	key := metricCacheKey(domain.MetricTimeSeries, productScope(pt), f,
		"period="+string(period),
		"interval="+string(interval),
	)
	var res domain.TimeSeriesResult
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	obs, err := s.fetchObsByProductType(ctx, pt, f, sinceFor(period, 0, now))
	if err != nil {
		return domain.TimeSeriesResult{}, err
	}

	from, ok := period.Start(now)
	if !ok {
		if earliest, found := earliestObservation(obs); found {
			from = earliest
		} else {
			from = now
		}
	}

	res = pricing.TimeSeries(obs, interval, from, now, now)
	s.cachePut(ctx, key, res)
	return res, nil
}

// Comprehensive computes every metric for a card from one shared observation
// fetch. Sub-metrics with no underlying data keep their null form; the
// bundle never fails on partial data.
func (s *MetricsService) Comprehensive(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.ComprehensiveMetrics, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.ComprehensiveMetrics{}, fmt.Errorf("metrics_service: %w", err)
	}
	if err := s.ensureCard(ctx, cardID); err != nil {
		return domain.ComprehensiveMetrics{}, err
	}

	key := metricCacheKey(domain.MetricComprehensive, cardID, f, "period="+string(period))
	var res domain.ComprehensiveMetrics
	if s.cacheGet(ctx, key, &res) {
		return res, nil
	}

	now := s.now()
	// One unbounded fetch covers the widest sub-metric lookback (all-time
	// delta and the 30-day EMA).
	obs, err := s.fetchObs(ctx, cardID, f, nil)
	if err != nil {
		return domain.ComprehensiveMetrics{}, err
	}
	snap, err := s.currentSnapshot(ctx, cardID, f)
	if err != nil {
		return domain.ComprehensiveMetrics{}, err
	}

	vwap := pricing.VWAP(obs, period, now)
	floor, err := pricing.Floor(obs, period, domain.GroupRarityTreatment, s.opts.MinSales, now)
	if err != nil {
		return domain.ComprehensiveMetrics{}, fmt.Errorf("metrics_service: %w", err)
	}

	var ask *float64
	if snap != nil {
		ask = snap.BestAsk
	}

	res = domain.ComprehensiveMetrics{
		CardID:      cardID,
		Period:      period,
		VWAP:        vwap,
		EMA7:        pricing.EMA(obs, 7, now),
		EMA14:       pricing.EMA(obs, 14, now),
		EMA30:       pricing.EMA(obs, 30, now),
		Delta1D:     pricing.Delta(obs, domain.Period1D, s.opts.DeltaBoundary, now),
		DeltaPeriod: pricing.Delta(obs, period, s.opts.DeltaBoundary, now),
		Floor:       floor,
		Spread:      pricing.Spread(snap, now),
		PriceToSale: pricing.PriceToSale(ask, vwap, now),
		ComputedAt:  now,
	}
	s.cachePut(ctx, key, res)
	return res, nil
}

// currentSnapshot loads the latest listing snapshot, mapping its absence to
// nil so snapshot-less cards get null spreads instead of errors.
func (s *MetricsService) currentSnapshot(ctx context.Context, cardID string, f domain.ObservationFilter) (*domain.ListingSnapshot, error) {
	snap, err := s.listings.GetCurrent(ctx, cardID, f)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics_service: get listing snapshot: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return &snap, nil
}

func earliestObservation(obs []domain.PriceObservation) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, o := range obs {
		if !found || o.ObservedAt.Before(earliest) {
			earliest = o.ObservedAt
			found = true
		}
	}
	return earliest, found
}
