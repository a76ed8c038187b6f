package domain

import "time"

// PriceObservation is a single completed-sale record ingested from an
// external marketplace. Observations are append-only: they are created once
// at ingestion and never mutated.
type PriceObservation struct {
	ID          string
	CardID      string
	ProductType ProductType
	Rarity      string // empty means unsegmented
	Treatment   string // empty means unsegmented
	Price       float64
	Quantity    int // 0 means unknown; metric math treats it as 1
	Platform    string
	Title       string
	ObservedAt  time.Time
	ScrapedAt   time.Time
}

// ListingSnapshot captures the best live bid and ask for a card at a point
// in time. At most one snapshot per (card, segmentation) is current; older
// rows are historical. A nil bid or ask means that side of the market is
// empty, which is a meaningful state distinct from "no snapshot".
type ListingSnapshot struct {
	CardID       string
	Rarity       string
	Treatment    string
	BestBid      *float64
	BestAsk      *float64
	ListingCount int
	CapturedAt   time.Time
}
