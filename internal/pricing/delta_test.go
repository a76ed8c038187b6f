package pricing

import (
	"testing"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

const dayBoundary = 24 * time.Hour

func TestDeltaRisingPrices(t *testing.T) {
	// Old anchor (30 days ago) saw $10, the last day saw $14.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 30.5),
		saleAt(14, 1, 0.5),
	}
	res := Delta(obs, domain.Period30D, dayBoundary, testNow)
	if res.Amount == nil || res.Percent == nil {
		t.Fatalf("want non-null delta, got %+v", res)
	}
	if !almostEqual(*res.Amount, 4.0) {
		t.Errorf("want amount 4.0, got %v", *res.Amount)
	}
	if !almostEqual(*res.Percent, 40.0) {
		t.Errorf("want percent 40.0, got %v", *res.Percent)
	}
	if *res.Current != 14.0 || *res.Previous != 10.0 {
		t.Errorf("reference prices wrong: current=%v previous=%v", *res.Current, *res.Previous)
	}
}

func TestDeltaBoundaryWindowAveragesTicks(t *testing.T) {
	// Two trades inside the current boundary window: the reference is their
	// VWAP, not the last tick.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 30.5),
		saleAt(12, 1, 0.6),
		saleAt(16, 1, 0.1),
	}
	res := Delta(obs, domain.Period30D, dayBoundary, testNow)
	if res.Current == nil {
		t.Fatal("want non-null current reference")
	}
	if !almostEqual(*res.Current, 14.0) {
		t.Errorf("want current reference 14.0, got %v", *res.Current)
	}
	if res.CurrentSamples != 2 {
		t.Errorf("want 2 current samples, got %d", res.CurrentSamples)
	}
}

func TestDeltaMissingBoundaryData(t *testing.T) {
	// No trades near the old anchor: null result, not an error.
	obs := []domain.PriceObservation{
		saleAt(14, 1, 0.5),
	}
	res := Delta(obs, domain.Period30D, dayBoundary, testNow)
	if res.Amount != nil || res.Percent != nil {
		t.Errorf("want null delta with missing old boundary, got %+v", res)
	}
	if res.CurrentSamples != 1 || res.PreviousSamples != 0 {
		t.Errorf("sample counts wrong: %d/%d", res.CurrentSamples, res.PreviousSamples)
	}
}

func TestDeltaNoData(t *testing.T) {
	res := Delta(nil, domain.Period1D, dayBoundary, testNow)
	if res.Amount != nil {
		t.Errorf("want null delta, got %v", *res.Amount)
	}
}

func TestDeltaAllTime(t *testing.T) {
	// All-time anchors the old reference at the earliest observation.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 90),
		saleAt(30, 1, 0.5),
	}
	res := Delta(obs, domain.PeriodAll, dayBoundary, testNow)
	if res.Amount == nil || res.Percent == nil {
		t.Fatalf("want non-null all-time delta, got %+v", res)
	}
	if !almostEqual(*res.Amount, 20.0) {
		t.Errorf("want amount 20.0, got %v", *res.Amount)
	}
	if !almostEqual(*res.Percent, 200.0) {
		t.Errorf("want percent 200.0, got %v", *res.Percent)
	}
}
