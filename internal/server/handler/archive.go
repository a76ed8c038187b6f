package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// ArchiveHandler triggers retention sweeps and lists archived exports.
type ArchiveHandler struct {
	archiver domain.Archiver
	blobs    domain.BlobReader
	logger   *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given archiver and
// blob reader.
func NewArchiveHandler(archiver domain.Archiver, blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver, blobs: blobs, logger: logger}
}

// Trigger runs a retention sweep, exporting observations older than the
// cutoff to cold storage and deleting them from the database.
// POST /api/archive/trigger?older_than_days=180
func (h *ArchiveHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	days := 180
	if v := r.URL.Query().Get("older_than_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "older_than_days must be a positive integer")
			return
		}
		days = n
	}

	before := time.Now().UTC().AddDate(0, 0, -days)
	archived, err := h.archiver.ArchiveObservations(r.Context(), before)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "archive observations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archived": archived,
		"before":   before.Format(time.RFC3339),
	})
}

// List returns the archived observation exports in cold storage.
// GET /api/archive
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.blobs.List(r.Context(), "archive/observations/")
	if err != nil {
		writeServiceError(w, r, h.logger, err, "list archives")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}
