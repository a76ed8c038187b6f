package pricing

import (
	"sort"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// Delta computes the change in reference price over a period. Each reference
// price is a VWAP over a short boundary window ending at its anchor point
// rather than a single tick, so one noisy trade cannot dominate the delta.
// The boundary width is a tunable parameter, not a constant.
//
// For PeriodAll the old anchor is the earliest observation: its reference is
// the VWAP over the boundary window starting there. If either boundary
// window has no data the result is null; the percentage is additionally null
// when the old reference is not positive.
func Delta(obs []domain.PriceObservation, period domain.Period, boundary time.Duration, now time.Time) domain.DeltaResult {
	res := domain.DeltaResult{Period: period, ComputedAt: now}
	if boundary <= 0 {
		return res
	}

	cur, curN := windowVWAP(obs, now.Add(-boundary), now.Add(time.Nanosecond))
	res.CurrentSamples = curN

	var old float64
	var oldN int
	if d, ok := period.Duration(); ok {
		anchor := now.Add(-d)
		old, oldN = windowVWAP(obs, anchor.Add(-boundary), anchor)
	} else {
		earliest, ok := earliestObserved(obs)
		if ok {
			old, oldN = windowVWAP(obs, earliest, earliest.Add(boundary))
		}
	}
	res.PreviousSamples = oldN

	if curN == 0 || oldN == 0 {
		return res
	}

	res.Current = domain.Float64Ptr(cur)
	res.Previous = domain.Float64Ptr(old)
	res.Amount = domain.Float64Ptr(cur - old)
	if old > 0 {
		res.Percent = domain.Float64Ptr((cur/old - 1) * 100)
	}
	return res
}

func earliestObserved(obs []domain.PriceObservation) (time.Time, bool) {
	valid := obs[:0:0]
	for _, o := range obs {
		if o.Price > 0 {
			valid = append(valid, o)
		}
	}
	if len(valid) == 0 {
		return time.Time{}, false
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ObservedAt.Before(valid[j].ObservedAt) })
	return valid[0].ObservedAt, true
}
