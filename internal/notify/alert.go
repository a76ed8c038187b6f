package notify

import (
	"fmt"

	"github.com/mwehr/cardpulse/internal/domain"
)

// PriceAlert builds the event type, title, and message for a daily delta
// crossing the alert threshold.
func PriceAlert(card domain.Card, delta domain.DeltaResult) (Event, string, string) {
	event := EventPriceSpike
	direction := "up"
	pct := 0.0
	if delta.Percent != nil {
		pct = *delta.Percent
	}
	if pct < 0 {
		event = EventPriceDrop
		direction = "down"
	}

	title := fmt.Sprintf("%s %s %.1f%%", card.Name, direction, abs(pct))

	cur, prev := "n/a", "n/a"
	if delta.Current != nil {
		cur = fmt.Sprintf("$%.2f", *delta.Current)
	}
	if delta.Previous != nil {
		prev = fmt.Sprintf("$%.2f", *delta.Previous)
	}
	message := fmt.Sprintf("%s (%s): %s -> %s over %s",
		card.Name, card.SetName, prev, cur, delta.Period)

	return event, title, message
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
