package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwehr/cardpulse/internal/domain"
)

// ObservationStore implements domain.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *pgxpool.Pool
}

// NewObservationStore creates an ObservationStore backed by the given pool.
func NewObservationStore(pool *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

const observationSelectCols = `id, card_id, product_type, rarity, treatment,
	price, quantity, platform, title, observed_at, scraped_at`

func scanObservationRows(rows pgx.Rows) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		if err := rows.Scan(
			&o.ID, &o.CardID, &o.ProductType, &o.Rarity, &o.Treatment,
			&o.Price, &o.Quantity, &o.Platform, &o.Title,
			&o.ObservedAt, &o.ScrapedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertBatch inserts observations using pgx Batch. Missing IDs are assigned.
// Duplicate rows (same card, platform, title, timestamp, and price) are
// silently skipped via ON CONFLICT DO NOTHING, making re-scrapes idempotent.
func (s *ObservationStore) InsertBatch(ctx context.Context, obs []domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO price_observations (
			id, card_id, product_type, rarity, treatment,
			price, quantity, platform, title, observed_at, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		) ON CONFLICT (card_id, platform, title, observed_at, price) DO NOTHING`

	for _, o := range obs {
		id := o.ID
		if id == "" {
			id = uuid.NewString()
		}
		scraped := o.ScrapedAt
		if scraped.IsZero() {
			scraped = time.Now().UTC()
		}
		batch.Queue(query,
			id, o.CardID, o.ProductType, o.Rarity, o.Treatment,
			o.Price, o.Quantity, o.Platform, o.Title, o.ObservedAt, scraped,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range obs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert observation batch item %d: %w", i, err)
		}
	}
	return nil
}

func appendFilter(query string, args []any, f domain.ObservationFilter, tr domain.TimeRange) (string, []any) {
	argIdx := len(args) + 1

	if f.Rarity != "" {
		query += fmt.Sprintf(" AND rarity = $%d", argIdx)
		args = append(args, f.Rarity)
		argIdx++
	}
	if f.Treatment != "" {
		query += fmt.Sprintf(" AND treatment = $%d", argIdx)
		args = append(args, f.Treatment)
		argIdx++
	}
	if f.Platform != "" {
		query += fmt.Sprintf(" AND platform = $%d", argIdx)
		args = append(args, f.Platform)
		argIdx++
	}
	if tr.Since != nil {
		query += fmt.Sprintf(" AND observed_at >= $%d", argIdx)
		args = append(args, *tr.Since)
		argIdx++
	}
	if tr.Until != nil {
		query += fmt.Sprintf(" AND observed_at <= $%d", argIdx)
		args = append(args, *tr.Until)
	}
	return query, args
}

// ListByCard returns a card's observations ordered by observation time.
func (s *ObservationStore) ListByCard(ctx context.Context, cardID string, f domain.ObservationFilter, tr domain.TimeRange) ([]domain.PriceObservation, error) {
	query := `SELECT ` + observationSelectCols + ` FROM price_observations WHERE card_id = $1`
	args := []any{cardID}
	query, args = appendFilter(query, args, f, tr)
	query += " ORDER BY observed_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations by card: %w", err)
	}
	defer rows.Close()

	obs, err := scanObservationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan observations by card: %w", err)
	}
	return obs, nil
}

// ListByProductType returns observations across all cards of a product type,
// for aggregate queries such as box floors and market-wide series.
func (s *ObservationStore) ListByProductType(ctx context.Context, pt domain.ProductType, f domain.ObservationFilter, tr domain.TimeRange) ([]domain.PriceObservation, error) {
	query := `SELECT ` + observationSelectCols + ` FROM price_observations WHERE product_type = $1`
	args := []any{pt}
	query, args = appendFilter(query, args, f, tr)
	query += " ORDER BY observed_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations by product type: %w", err)
	}
	defer rows.Close()

	obs, err := scanObservationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan observations by product type: %w", err)
	}
	return obs, nil
}

// ListBefore returns all observations strictly older than the given time,
// in ascending order (for archiving).
func (s *ObservationStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error) {
	query := `SELECT ` + observationSelectCols + ` FROM price_observations WHERE observed_at < $1 ORDER BY observed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations before: %w", err)
	}
	defer rows.Close()
	return scanObservationRows(rows)
}

// DeleteBefore deletes observations older than the given time. Returns the
// number deleted.
func (s *ObservationStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_observations WHERE observed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete observations before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.ObservationStore = (*ObservationStore)(nil)
