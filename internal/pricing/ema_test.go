package pricing

import (
	"testing"

	"github.com/mwehr/cardpulse/internal/domain"
)

func TestEMAInsufficientData(t *testing.T) {
	cases := []struct {
		name string
		obs  []domain.PriceObservation
	}{
		{"no observations", nil},
		{"single daily point", []domain.PriceObservation{saleAt(10, 1, 1)}},
		{"two sales same day", []domain.PriceObservation{saleAt(10, 1, 1), saleAt(12, 1, 1.01)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := EMA(tc.obs, 14, testNow)
			if res.Value != nil {
				t.Errorf("want null EMA, got %v", *res.Value)
			}
			if res.Window != 14 {
				t.Errorf("window not echoed back, got %d", res.Window)
			}
		})
	}
}

func TestEMASmoothing(t *testing.T) {
	// Two daily points: seed 10, then 14. alpha = 2/(7+1) = 0.25.
	// EMA = 0.25*14 + 0.75*10 = 11.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 2),
		saleAt(14, 1, 1),
	}
	res := EMA(obs, 7, testNow)
	if res.Value == nil {
		t.Fatal("want non-null EMA")
	}
	if !almostEqual(*res.Value, 11.0) {
		t.Errorf("want 11.0, got %v", *res.Value)
	}
	if res.DailyPoints != 2 {
		t.Errorf("want 2 daily points, got %d", res.DailyPoints)
	}
	if res.SampleSize != 2 {
		t.Errorf("want sample size 2, got %d", res.SampleSize)
	}
}

func TestEMADailyBucketsUseVWAP(t *testing.T) {
	// Day -2 has two sales averaging 10; day -1 has one sale at 14.
	obs := []domain.PriceObservation{
		saleAt(8, 1, 2),
		saleAt(12, 1, 2.01),
		saleAt(14, 1, 1),
	}
	res := EMA(obs, 7, testNow)
	if res.Value == nil {
		t.Fatal("want non-null EMA")
	}
	if !almostEqual(*res.Value, 11.0) {
		t.Errorf("want 11.0, got %v", *res.Value)
	}
	if res.SampleSize != 3 {
		t.Errorf("want sample size 3, got %d", res.SampleSize)
	}
}

func TestEMAWindowBoundsLookback(t *testing.T) {
	// A very old cheap sale must not leak into a 7-day EMA.
	obs := []domain.PriceObservation{
		saleAt(1, 1, 60),
		saleAt(10, 1, 2),
		saleAt(14, 1, 1),
	}
	res := EMA(obs, 7, testNow)
	if res.Value == nil {
		t.Fatal("want non-null EMA")
	}
	if res.DailyPoints != 2 {
		t.Errorf("want 2 daily points inside window, got %d", res.DailyPoints)
	}
	if !almostEqual(*res.Value, 11.0) {
		t.Errorf("want 11.0, got %v", *res.Value)
	}
}

func TestEMAShorterWindowMoreReactive(t *testing.T) {
	// Rising prices: a shorter window weighs recent days more heavily.
	obs := []domain.PriceObservation{
		saleAt(10, 1, 6),
		saleAt(12, 1, 5),
		saleAt(14, 1, 4),
		saleAt(16, 1, 3),
		saleAt(18, 1, 2),
		saleAt(20, 1, 1),
	}
	e7 := EMA(obs, 7, testNow)
	e30 := EMA(obs, 30, testNow)
	if e7.Value == nil || e30.Value == nil {
		t.Fatal("want non-null EMAs")
	}
	if *e7.Value <= *e30.Value {
		t.Errorf("uptrend: EMA(7)=%v should exceed EMA(30)=%v", *e7.Value, *e30.Value)
	}
}
