package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mwehr/cardpulse/internal/domain"
)

// IngestService defines the write operations the ingest handler requires
// from the service layer.
type IngestService interface {
	IngestObservations(ctx context.Context, obs []domain.PriceObservation) (int, error)
	RecordSnapshot(ctx context.Context, snap domain.ListingSnapshot) error
}

// IngestHandler serves the write surface scrapers push market data through.
type IngestHandler struct {
	ingest IngestService
	logger *slog.Logger
}

// NewIngestHandler creates an IngestHandler with the given service and
// logger.
func NewIngestHandler(ingest IngestService, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

// IngestObservations accepts a JSON array of sale observations. The batch is
// idempotent under re-submission; duplicates are skipped at the store layer.
// POST /api/observations
func (h *IngestHandler) IngestObservations(w http.ResponseWriter, r *http.Request) {
	var obs []domain.PriceObservation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(obs) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	n, err := h.ingest.IngestObservations(r.Context(), obs)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "ingest observations")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": n})
}

// RecordSnapshot accepts the latest bid/ask snapshot for a card segment.
// POST /api/snapshots
func (h *IngestHandler) RecordSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap domain.ListingSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.ingest.RecordSnapshot(r.Context(), snap); err != nil {
		writeServiceError(w, r, h.logger, err, "record snapshot")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
