package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TimeRange bounds a store query by observation timestamp. A nil boundary
// means unbounded on that side.
type TimeRange struct {
	Since *time.Time
	Until *time.Time
}

// CardStore persists card metadata.
type CardStore interface {
	Upsert(ctx context.Context, card Card) error
	GetByID(ctx context.Context, id string) (Card, error)
	List(ctx context.Context, productType ProductType, opts ListOpts) ([]Card, error)
	Count(ctx context.Context) (int64, error)
}

// ObservationStore persists immutable sale observations. The engine reads
// from it; ingestion collaborators write through InsertBatch, and the
// retention archiver uses ListBefore/DeleteBefore.
type ObservationStore interface {
	InsertBatch(ctx context.Context, obs []PriceObservation) error
	ListByCard(ctx context.Context, cardID string, f ObservationFilter, tr TimeRange) ([]PriceObservation, error)
	ListByProductType(ctx context.Context, pt ProductType, f ObservationFilter, tr TimeRange) ([]PriceObservation, error)
	ListBefore(ctx context.Context, before time.Time) ([]PriceObservation, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ListingStore persists bid/ask listing snapshots.
type ListingStore interface {
	Upsert(ctx context.Context, snap ListingSnapshot) error
	// GetCurrent returns the authoritative snapshot for a (card,
	// segmentation) pair, or ErrNotFound when none exists.
	GetCurrent(ctx context.Context, cardID string, f ObservationFilter) (ListingSnapshot, error)
}
