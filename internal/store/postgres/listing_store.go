package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwehr/cardpulse/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Upsert stores the latest bid/ask snapshot for a card segment, replacing
// any previous snapshot for the same (card, rarity, treatment) key.
func (s *ListingStore) Upsert(ctx context.Context, snap domain.ListingSnapshot) error {
	const query = `
		INSERT INTO listing_snapshots (
			card_id, rarity, treatment, best_bid, best_ask, listing_count, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (card_id, rarity, treatment) DO UPDATE SET
			best_bid = EXCLUDED.best_bid,
			best_ask = EXCLUDED.best_ask,
			listing_count = EXCLUDED.listing_count,
			captured_at = EXCLUDED.captured_at`

	_, err := s.pool.Exec(ctx, query,
		snap.CardID, snap.Rarity, snap.Treatment,
		snap.BestBid, snap.BestAsk, snap.ListingCount, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing snapshot: %w", err)
	}
	return nil
}

// GetCurrent returns the most recent snapshot for a card, optionally narrowed
// to a rarity or treatment segment. When several segments match, the snapshot
// with the latest capture time wins.
func (s *ListingStore) GetCurrent(ctx context.Context, cardID string, f domain.ObservationFilter) (domain.ListingSnapshot, error) {
	query := `
		SELECT card_id, rarity, treatment, best_bid, best_ask, listing_count, captured_at
		FROM listing_snapshots
		WHERE card_id = $1`
	args := []any{cardID}

	if f.Rarity != "" {
		args = append(args, f.Rarity)
		query += fmt.Sprintf(" AND rarity = $%d", len(args))
	}
	if f.Treatment != "" {
		args = append(args, f.Treatment)
		query += fmt.Sprintf(" AND treatment = $%d", len(args))
	}
	query += " ORDER BY captured_at DESC LIMIT 1"

	var snap domain.ListingSnapshot
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&snap.CardID, &snap.Rarity, &snap.Treatment,
		&snap.BestBid, &snap.BestAsk, &snap.ListingCount, &snap.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ListingSnapshot{}, fmt.Errorf("postgres: listing snapshot for card %s: %w", cardID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ListingSnapshot{}, fmt.Errorf("postgres: get listing snapshot: %w", err)
	}
	return snap, nil
}

var _ domain.ListingStore = (*ListingStore)(nil)
