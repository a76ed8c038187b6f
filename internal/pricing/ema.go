package pricing

import (
	"sort"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// EMA computes an exponential moving average over daily price points. The
// window length in days bounds the lookback and sets the smoothing factor
// alpha = 2/(N+1). Observations are bucketed into daily VWAP values keyed by
// UTC day; the series is seeded with the earliest daily value. Fewer than
// two daily points cannot express a trend and yield a null result.
func EMA(obs []domain.PriceObservation, window int, now time.Time) domain.EMAResult {
	res := domain.EMAResult{Window: window, ComputedAt: now}
	if window <= 0 {
		return res
	}

	start := now.Add(-time.Duration(window) * 24 * time.Hour)

	type acc struct {
		sumPQ, sumQ float64
		n           int
	}
	days := make(map[time.Time]*acc)
	for _, o := range obs {
		if o.Price <= 0 {
			continue
		}
		if o.ObservedAt.Before(start) || o.ObservedAt.After(now) {
			continue
		}
		day := o.ObservedAt.UTC().Truncate(24 * time.Hour)
		a := days[day]
		if a == nil {
			a = &acc{}
			days[day] = a
		}
		q := float64(o.Quantity)
		if q <= 0 {
			q = 1
		}
		a.sumPQ += o.Price * q
		a.sumQ += q
		a.n++
	}

	if len(days) < 2 {
		return res
	}

	keys := make([]time.Time, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	alpha := 2.0 / (float64(window) + 1)
	samples := 0

	ema := days[keys[0]].sumPQ / days[keys[0]].sumQ
	samples += days[keys[0]].n
	for _, day := range keys[1:] {
		a := days[day]
		v := a.sumPQ / a.sumQ
		ema = alpha*v + (1-alpha)*ema
		samples += a.n
	}

	res.Value = domain.Float64Ptr(ema)
	res.DailyPoints = len(days)
	res.SampleSize = samples
	return res
}
