package pricing

import (
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// TimeSeries buckets observations into interval-aligned windows spanning
// [from, to). Buckets with zero observations are still emitted with null
// prices and a zero count so the series is gap-free for charting. Weekly
// buckets are seven consecutive days anchored at the range start, not
// calendar-week aligned, which keeps bucket boundaries a function of the
// query alone. A daily series over N days yields exactly N buckets.
func TimeSeries(obs []domain.PriceObservation, interval domain.Interval, from, to time.Time, now time.Time) domain.TimeSeriesResult {
	res := domain.TimeSeriesResult{Interval: interval, ComputedAt: now}
	if !from.Before(to) {
		return res
	}

	width := time.Duration(interval.Days()) * 24 * time.Hour
	for start := from; start.Before(to); start = start.Add(width) {
		end := start.Add(width)

		bucket := domain.TimeSeriesBucket{Start: start}
		vwap, n := windowVWAP(obs, start, end)
		if n > 0 {
			bucket.VWAP = domain.Float64Ptr(vwap)
			bucket.Count = n
			res.SampleSize += n

			lo, hi := priceExtremes(obs, start, end)
			bucket.Floor = domain.Float64Ptr(lo)
			bucket.Ceiling = domain.Float64Ptr(hi)
		}
		res.Buckets = append(res.Buckets, bucket)
	}
	return res
}

func priceExtremes(obs []domain.PriceObservation, from, to time.Time) (lo, hi float64) {
	first := true
	for _, o := range obs {
		if o.Price <= 0 {
			continue
		}
		if o.ObservedAt.Before(from) || !o.ObservedAt.Before(to) {
			continue
		}
		if first {
			lo, hi = o.Price, o.Price
			first = false
			continue
		}
		if o.Price < lo {
			lo = o.Price
		}
		if o.Price > hi {
			hi = o.Price
		}
	}
	return lo, hi
}
