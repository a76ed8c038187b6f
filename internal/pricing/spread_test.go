package pricing

import (
	"testing"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

func TestSpreadNoSnapshot(t *testing.T) {
	res := Spread(nil, testNow)
	if res.Bid != nil || res.Ask != nil || res.Amount != nil || res.Percent != nil || res.CapturedAt != nil {
		t.Errorf("want fully null spread, got %+v", res)
	}
}

func TestSpreadComputed(t *testing.T) {
	snap := &domain.ListingSnapshot{
		CardID:     "card-1",
		BestBid:    domain.Float64Ptr(24),
		BestAsk:    domain.Float64Ptr(28),
		CapturedAt: testNow.Add(-time.Minute),
	}
	res := Spread(snap, testNow)
	if res.Amount == nil || res.Percent == nil {
		t.Fatalf("want computed spread, got %+v", res)
	}
	if !almostEqual(*res.Amount, 4.0) {
		t.Errorf("want amount 4.0, got %v", *res.Amount)
	}
	// 4 / 24 * 100
	if !almostEqual(*res.Percent, 100.0/6.0) {
		t.Errorf("want percent %.4f, got %v", 100.0/6.0, *res.Percent)
	}
	if res.CapturedAt == nil || !res.CapturedAt.Equal(snap.CapturedAt) {
		t.Errorf("snapshot timestamp not echoed back: %v", res.CapturedAt)
	}
}

func TestSpreadOneSidedMarket(t *testing.T) {
	cases := []struct {
		name string
		snap *domain.ListingSnapshot
	}{
		{"no bid", &domain.ListingSnapshot{BestAsk: domain.Float64Ptr(28), CapturedAt: testNow}},
		{"no ask", &domain.ListingSnapshot{BestBid: domain.Float64Ptr(24), CapturedAt: testNow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Spread(tc.snap, testNow)
			if res.Amount != nil || res.Percent != nil {
				t.Errorf("one-sided market must yield null spread, got %+v", res)
			}
			// Distinct from "no data": the snapshot timestamp is present.
			if res.CapturedAt == nil {
				t.Error("one-sided market should still echo CapturedAt")
			}
		})
	}
}

func TestSpreadZeroBidNoPercent(t *testing.T) {
	snap := &domain.ListingSnapshot{
		BestBid:    domain.Float64Ptr(0),
		BestAsk:    domain.Float64Ptr(28),
		CapturedAt: testNow,
	}
	res := Spread(snap, testNow)
	if res.Amount == nil || !almostEqual(*res.Amount, 28.0) {
		t.Errorf("want amount 28.0, got %v", res.Amount)
	}
	if res.Percent != nil {
		t.Errorf("percent must never be computed against a zero bid, got %v", *res.Percent)
	}
}
