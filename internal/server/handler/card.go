package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mwehr/cardpulse/internal/domain"
)

// CardService defines the methods the card handler requires from the
// service layer.
type CardService interface {
	UpsertCard(ctx context.Context, card domain.Card) (domain.Card, error)
	GetCard(ctx context.Context, id string) (domain.Card, error)
	ListCards(ctx context.Context, productType domain.ProductType, opts domain.ListOpts) ([]domain.Card, error)
	CountCards(ctx context.Context) (int64, error)
}

// CardHandler serves card metadata endpoints.
type CardHandler struct {
	cards  CardService
	logger *slog.Logger
}

// NewCardHandler creates a CardHandler with the given service and logger.
func NewCardHandler(cards CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

// listCardsResponse wraps the list endpoint output with metadata.
type listCardsResponse struct {
	Cards  []domain.Card `json:"cards"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListCards returns tracked cards with pagination, optionally filtered by
// product type.
// GET /api/cards?product_type=Single&limit=50&offset=0
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	productType := domain.ProductType(r.URL.Query().Get("product_type"))

	cards, err := h.cards.ListCards(r.Context(), productType, opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "list cards")
		return
	}

	total, err := h.cards.CountCards(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "count cards")
		return
	}

	writeJSON(w, http.StatusOK, listCardsResponse{
		Cards:  cards,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetCard returns a single card by its ID.
// GET /api/cards/{id}
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing card id")
		return
	}

	card, err := h.cards.GetCard(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "card not found")
			return
		}
		writeServiceError(w, r, h.logger, err, "get card")
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// UpsertCard creates or updates a card from a JSON body.
// POST /api/cards
func (h *CardHandler) UpsertCard(w http.ResponseWriter, r *http.Request) {
	var card domain.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	stored, err := h.cards.UpsertCard(r.Context(), card)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "upsert card")
		return
	}

	writeJSON(w, http.StatusOK, stored)
}
