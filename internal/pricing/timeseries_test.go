package pricing

import (
	"testing"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

func TestTimeSeriesDailyGapFree(t *testing.T) {
	from := testNow.Add(-7 * 24 * time.Hour)

	// Sales on two of the seven days only.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 6.5),
		saleAt(12, 1, 6.6),
		saleAt(20, 1, 0.5),
	}

	res := TimeSeries(obs, domain.IntervalDaily, from, testNow, testNow)
	if len(res.Buckets) != 7 {
		t.Fatalf("7-day range in daily mode: want exactly 7 buckets, got %d", len(res.Buckets))
	}

	filled := 0
	for i, b := range res.Buckets {
		wantStart := from.Add(time.Duration(i) * 24 * time.Hour)
		if !b.Start.Equal(wantStart) {
			t.Errorf("bucket %d: want start %v, got %v", i, wantStart, b.Start)
		}
		if b.Count == 0 {
			if b.VWAP != nil || b.Floor != nil || b.Ceiling != nil {
				t.Errorf("empty bucket %d should carry null prices: %+v", i, b)
			}
			continue
		}
		filled++
		if b.VWAP == nil || b.Floor == nil || b.Ceiling == nil {
			t.Fatalf("filled bucket %d missing prices: %+v", i, b)
		}
		if *b.Floor > *b.VWAP || *b.VWAP > *b.Ceiling {
			t.Errorf("bucket %d: floor %v <= vwap %v <= ceiling %v violated", i, *b.Floor, *b.VWAP, *b.Ceiling)
		}
	}
	if filled != 2 {
		t.Errorf("want 2 filled buckets, got %d", filled)
	}
	if res.SampleSize != 3 {
		t.Errorf("want total sample size 3, got %d", res.SampleSize)
	}
}

func TestTimeSeriesWeeklyAnchoredAtRangeStart(t *testing.T) {
	from := testNow.Add(-28 * 24 * time.Hour)

	res := TimeSeries(nil, domain.IntervalWeekly, from, testNow, testNow)
	if len(res.Buckets) != 4 {
		t.Fatalf("28-day range in weekly mode: want 4 buckets, got %d", len(res.Buckets))
	}
	for i, b := range res.Buckets {
		wantStart := from.Add(time.Duration(i) * 7 * 24 * time.Hour)
		if !b.Start.Equal(wantStart) {
			t.Errorf("bucket %d: want start %v (range-anchored), got %v", i, wantStart, b.Start)
		}
	}
}

func TestTimeSeriesAscendingOrder(t *testing.T) {
	from := testNow.Add(-10 * 24 * time.Hour)
	res := TimeSeries(nil, domain.IntervalDaily, from, testNow, testNow)
	for i := 1; i < len(res.Buckets); i++ {
		if !res.Buckets[i-1].Start.Before(res.Buckets[i].Start) {
			t.Fatalf("buckets not ascending at %d", i)
		}
	}
}

func TestTimeSeriesEmptyRange(t *testing.T) {
	res := TimeSeries(nil, domain.IntervalDaily, testNow, testNow, testNow)
	if len(res.Buckets) != 0 {
		t.Errorf("empty range: want no buckets, got %d", len(res.Buckets))
	}
}
