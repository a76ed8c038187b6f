// Package handler contains the HTTP handlers for the analytics API. Handlers
// declare the service interfaces they need locally so the package never
// depends on concrete service implementations.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mwehr/cardpulse/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the domain error taxonomy to HTTP status codes.
// Invalid parameters surface their detail; everything else gets a generic
// message so internals never leak.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), "handler: store unavailable",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// parseFilter extracts the segmentation filter from the query string.
func parseFilter(r *http.Request) domain.ObservationFilter {
	q := r.URL.Query()
	return domain.ObservationFilter{
		Rarity:    q.Get("rarity"),
		Treatment: q.Get("treatment"),
		Platform:  q.Get("platform"),
	}
}

// parsePeriod reads the period query parameter, defaulting when absent.
func parsePeriod(r *http.Request, fallback domain.Period) (domain.Period, error) {
	v := r.URL.Query().Get("period")
	if v == "" {
		return fallback, nil
	}
	return domain.ParsePeriod(v)
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
