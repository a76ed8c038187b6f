package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// Floor computes the minimum observed sale price per partition over a
// period. Partitions with fewer than minSales qualifying observations are
// dropped from the output entirely rather than returned as null. Entries
// are sorted by partition key so identical inputs always serialize
// identically.
func Floor(obs []domain.PriceObservation, period domain.Period, mode domain.GroupMode, minSales int, now time.Time) (domain.FloorResult, error) {
	res := domain.FloorResult{GroupMode: mode, Period: period, MinSales: minSales, ComputedAt: now}

	if minSales <= 0 {
		return res, fmt.Errorf("%w: min_sales must be > 0, got %d", domain.ErrInvalidParameter, minSales)
	}

	start, bounded := period.Start(now)
	qualifying := make([]domain.PriceObservation, 0, len(obs))
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
		qualifying = append(qualifying, o)
	}

	parts, err := Partition(mode, qualifying)
	if err != nil {
		return res, err
	}

	for key, group := range parts {
		if len(group) < minSales {
			continue
		}
		floor := group[0].Price
		sum := 0.0
		for _, o := range group {
			if o.Price < floor {
				floor = o.Price
			}
			sum += o.Price
		}
		res.Entries = append(res.Entries, domain.FloorEntry{
			Key:        key,
			Floor:      floor,
			Average:    sum / float64(len(group)),
			SampleSize: len(group),
		})
		res.SampleSize += len(group)
	}

	sort.Slice(res.Entries, func(i, j int) bool { return res.Entries[i].Key < res.Entries[j].Key })
	return res, nil
}
