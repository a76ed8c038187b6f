// Package pricing implements the market-metric primitives: pure functions
// that turn an in-memory slice of price observations into derived metrics.
// Primitives never touch storage; callers fetch once and pass the slice,
// which keeps aggregation to a single store round-trip.
package pricing

import (
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// VWAP computes the volume-weighted average price of observations whose
// timestamp falls within [now-period, now]. For PeriodAll no lower bound is
// applied. Observations with a non-positive price are excluded before
// weighting; a missing quantity counts as a single unit, degrading to a
// simple average. Zero qualifying observations yield a null result.
func VWAP(obs []domain.PriceObservation, period domain.Period, now time.Time) domain.VWAPResult {
	res := domain.VWAPResult{Period: period, ComputedAt: now}

	start, bounded := period.Start(now)

	var sumPQ, sumQ float64
	n := 0
	for _, o := range obs {
		if o.Price <= 0 {
			continue
		}
		if bounded && o.ObservedAt.Before(start) {
			continue
		}
		if o.ObservedAt.After(now) {
			continue
		}
		q := float64(o.Quantity)
		if q <= 0 {
			q = 1
		}
		sumPQ += o.Price * q
		sumQ += q
		n++
	}

	if n == 0 || sumQ == 0 {
		return res
	}
	res.Value = domain.Float64Ptr(sumPQ / sumQ)
	res.SampleSize = n
	return res
}

// windowVWAP computes a VWAP over the half-open window [from, to). It is the
// shared building block for delta reference prices and time-series buckets.
func windowVWAP(obs []domain.PriceObservation, from, to time.Time) (float64, int) {
	var sumPQ, sumQ float64
	n := 0
	for _, o := range obs {
		if o.Price <= 0 {
			continue
		}
		if o.ObservedAt.Before(from) || !o.ObservedAt.Before(to) {
			continue
		}
		q := float64(o.Quantity)
		if q <= 0 {
			q = 1
		}
		sumPQ += o.Price * q
		sumQ += q
		n++
	}
	if n == 0 || sumQ == 0 {
		return 0, 0
	}
	return sumPQ / sumQ, n
}
