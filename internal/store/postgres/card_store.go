package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwehr/cardpulse/internal/domain"
)

// CardStore implements domain.CardStore using PostgreSQL.
type CardStore struct {
	pool *pgxpool.Pool
}

// NewCardStore creates a CardStore backed by the given connection pool.
func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

const cardSelectCols = `id, name, set_name, number, rarity, product_type,
	image_url, created_at, updated_at`

// Upsert inserts or updates a card's metadata.
func (s *CardStore) Upsert(ctx context.Context, card domain.Card) error {
	const query = `
		INSERT INTO cards (id, name, set_name, number, rarity, product_type, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			set_name = EXCLUDED.set_name,
			number = EXCLUDED.number,
			rarity = EXCLUDED.rarity,
			product_type = EXCLUDED.product_type,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query,
		card.ID, card.Name, card.SetName, card.Number,
		card.Rarity, card.ProductType, card.ImageURL,
	); err != nil {
		return fmt.Errorf("postgres: upsert card %s: %w", card.ID, err)
	}
	return nil
}

// GetByID returns a card by its ID, or domain.ErrNotFound.
func (s *CardStore) GetByID(ctx context.Context, id string) (domain.Card, error) {
	query := `SELECT ` + cardSelectCols + ` FROM cards WHERE id = $1`

	var c domain.Card
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.SetName, &c.Number, &c.Rarity,
		&c.ProductType, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Card{}, domain.ErrNotFound
		}
		return domain.Card{}, fmt.Errorf("postgres: get card %s: %w", id, err)
	}
	return c, nil
}

// List returns cards with pagination, optionally filtered by product type.
func (s *CardStore) List(ctx context.Context, productType domain.ProductType, opts domain.ListOpts) ([]domain.Card, error) {
	query := `SELECT ` + cardSelectCols + ` FROM cards`
	args := []any{}
	if productType != "" {
		query += " WHERE product_type = $1"
		args = append(args, productType)
	}
	query += " ORDER BY name ASC"

	argIdx := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.Name, &c.SetName, &c.Number, &c.Rarity,
			&c.ProductType, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list cards: %w", err)
	}
	return cards, nil
}

// Count returns the total number of tracked cards.
func (s *CardStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cards").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count cards: %w", err)
	}
	return n, nil
}

var _ domain.CardStore = (*CardStore)(nil)
