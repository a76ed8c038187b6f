package pricing

import (
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// Spread computes the bid/ask gap from the current listing snapshot. A nil
// snapshot means no data. A snapshot with a missing bid or ask is a valid
// one-sided market: the present side and CapturedAt are echoed back so
// callers can render it distinctly from "no data", but the spread itself is
// null. The percentage is never computed against a zero bid.
func Spread(snap *domain.ListingSnapshot, now time.Time) domain.SpreadResult {
	res := domain.SpreadResult{ComputedAt: now}
	if snap == nil {
		return res
	}

	captured := snap.CapturedAt
	res.CapturedAt = &captured
	res.Bid = snap.BestBid
	res.Ask = snap.BestAsk

	if snap.BestBid == nil || snap.BestAsk == nil {
		return res
	}

	amount := *snap.BestAsk - *snap.BestBid
	res.Amount = domain.Float64Ptr(amount)
	if *snap.BestBid > 0 {
		res.Percent = domain.Float64Ptr(amount / *snap.BestBid * 100)
	}
	return res
}
