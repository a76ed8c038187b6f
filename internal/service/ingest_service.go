package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// IngestService is the write surface scrapers and importers push market data
// through. It validates before handing batches to the stores; duplicate
// observations are deduplicated at the store layer.
type IngestService struct {
	obs      domain.ObservationStore
	listings domain.ListingStore
	logger   *slog.Logger
}

// NewIngestService creates an IngestService with all required dependencies.
func NewIngestService(obs domain.ObservationStore, listings domain.ListingStore, logger *slog.Logger) *IngestService {
	return &IngestService{obs: obs, listings: listings, logger: logger}
}

// IngestObservations validates and persists a batch of sale observations.
// The whole batch is rejected on the first invalid entry so callers can fix
// and resubmit; accepted batches are idempotent under re-submission.
func (s *IngestService) IngestObservations(ctx context.Context, obs []domain.PriceObservation) (int, error) {
	for i, o := range obs {
		if o.CardID == "" {
			return 0, fmt.Errorf("ingest_service: %w: observation %d missing card id", domain.ErrInvalidParameter, i)
		}
		if o.Price <= 0 {
			return 0, fmt.Errorf("ingest_service: %w: observation %d has non-positive price", domain.ErrInvalidParameter, i)
		}
		if o.ObservedAt.IsZero() {
			return 0, fmt.Errorf("ingest_service: %w: observation %d missing observed_at", domain.ErrInvalidParameter, i)
		}
	}

	if err := s.obs.InsertBatch(ctx, obs); err != nil {
		return 0, fmt.Errorf("ingest_service: insert batch: %w", err)
	}

	s.logger.InfoContext(ctx, "ingest_service: ingested observations",
		slog.Int("count", len(obs)),
	)
	return len(obs), nil
}

// RecordSnapshot validates and stores the latest bid/ask snapshot for a
// card segment, replacing any previous one.
func (s *IngestService) RecordSnapshot(ctx context.Context, snap domain.ListingSnapshot) error {
	if snap.CardID == "" {
		return fmt.Errorf("ingest_service: %w: snapshot missing card id", domain.ErrInvalidParameter)
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}

	if err := s.listings.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("ingest_service: upsert snapshot: %w", err)
	}
	return nil
}
