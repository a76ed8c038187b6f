package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mwehr/cardpulse/internal/domain"
)

// CardService manages card metadata.
type CardService struct {
	cards  domain.CardStore
	logger *slog.Logger
}

// NewCardService creates a CardService with all required dependencies.
func NewCardService(cards domain.CardStore, logger *slog.Logger) *CardService {
	return &CardService{cards: cards, logger: logger}
}

// UpsertCard validates and persists a card, assigning an ID when the caller
// omits one. It returns the card as stored.
func (s *CardService) UpsertCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	if card.Name == "" {
		return domain.Card{}, fmt.Errorf("card_service: %w: name required", domain.ErrInvalidParameter)
	}
	switch card.ProductType {
	case "":
		card.ProductType = domain.ProductTypeSingle
	case domain.ProductTypeSingle, domain.ProductTypeBox:
	default:
		return domain.Card{}, fmt.Errorf("card_service: %w: unknown product type %q", domain.ErrInvalidParameter, card.ProductType)
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}

	if err := s.cards.Upsert(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("card_service: upsert %s: %w", card.ID, err)
	}

	s.logger.InfoContext(ctx, "card_service: upserted card",
		slog.String("card_id", card.ID),
		slog.String("name", card.Name),
	)
	return card, nil
}

// GetCard retrieves a card by ID.
func (s *CardService) GetCard(ctx context.Context, id string) (domain.Card, error) {
	if id == "" {
		return domain.Card{}, fmt.Errorf("card_service: %w: card id required", domain.ErrInvalidParameter)
	}
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card_service: get %s: %w", id, err)
	}
	return card, nil
}

// ListCards returns cards, optionally filtered by product type.
func (s *CardService) ListCards(ctx context.Context, productType domain.ProductType, opts domain.ListOpts) ([]domain.Card, error) {
	cards, err := s.cards.List(ctx, productType, opts)
	if err != nil {
		return nil, fmt.Errorf("card_service: list: %w", err)
	}
	return cards, nil
}

// CountCards returns the number of tracked cards.
func (s *CardService) CountCards(ctx context.Context) (int64, error) {
	n, err := s.cards.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("card_service: count: %w", err)
	}
	return n, nil
}
