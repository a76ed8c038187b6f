package pricing

import (
	"testing"

	"github.com/mwehr/cardpulse/internal/domain"
)

func TestPriceToSale(t *testing.T) {
	vwap := VWAP([]domain.PriceObservation{saleAt(20, 1, 1)}, domain.Period30D, testNow)

	res := PriceToSale(domain.Float64Ptr(28), vwap, testNow)
	if res.Ratio == nil {
		t.Fatal("want non-null ratio")
	}
	if !almostEqual(*res.Ratio, 1.4) {
		t.Errorf("want 1.4, got %v", *res.Ratio)
	}
	if res.Ask == nil || *res.Ask != 28 || res.VWAP == nil || *res.VWAP != 20 {
		t.Errorf("inputs not echoed back: %+v", res)
	}
	if res.Period != domain.Period30D {
		t.Errorf("period not carried from VWAP, got %s", res.Period)
	}
}

func TestPriceToSaleNullCases(t *testing.T) {
	vwap := VWAP([]domain.PriceObservation{saleAt(20, 1, 1)}, domain.Period30D, testNow)
	noVWAP := VWAP(nil, domain.Period30D, testNow)

	if res := PriceToSale(nil, vwap, testNow); res.Ratio != nil {
		t.Errorf("no ask: want null ratio, got %v", *res.Ratio)
	}
	if res := PriceToSale(domain.Float64Ptr(28), noVWAP, testNow); res.Ratio != nil {
		t.Errorf("no VWAP: want null ratio, got %v", *res.Ratio)
	}
}
