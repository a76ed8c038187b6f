package pricing

import (
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// PriceToSale relates the current ask to the period VWAP. Both inputs must
// be present and the VWAP positive; otherwise the ratio is null while the
// available inputs are still echoed back.
func PriceToSale(ask *float64, vwap domain.VWAPResult, now time.Time) domain.RatioResult {
	res := domain.RatioResult{
		Ask:        ask,
		VWAP:       vwap.Value,
		Period:     vwap.Period,
		ComputedAt: now,
	}
	if ask == nil || vwap.Value == nil || *vwap.Value <= 0 {
		return res
	}
	res.Ratio = domain.Float64Ptr(*ask / *vwap.Value)
	return res
}
