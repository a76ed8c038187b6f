package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mwehr/cardpulse/internal/domain"
)

// MetricsService defines the metric operations the handler requires from
// the service layer.
type MetricsService interface {
	VWAP(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.VWAPResult, error)
	EMA(ctx context.Context, cardID string, window int, f domain.ObservationFilter) (domain.EMAResult, error)
	Delta(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.DeltaResult, error)
	Floor(ctx context.Context, cardID string, period domain.Period, mode domain.GroupMode, minSales int, f domain.ObservationFilter) (domain.FloorResult, error)
	Spread(ctx context.Context, cardID string, f domain.ObservationFilter) (domain.SpreadResult, error)
	PriceToSale(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.RatioResult, error)
	TimeSeries(ctx context.Context, cardID string, period domain.Period, interval domain.Interval, f domain.ObservationFilter) (domain.TimeSeriesResult, error)
	Comprehensive(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.ComprehensiveMetrics, error)
	FloorByProductType(ctx context.Context, pt domain.ProductType, period domain.Period, mode domain.GroupMode, minSales int, f domain.ObservationFilter) (domain.FloorResult, error)
	TimeSeriesByProductType(ctx context.Context, pt domain.ProductType, period domain.Period, interval domain.Interval, f domain.ObservationFilter) (domain.TimeSeriesResult, error)
}

// MetricsHandler serves the per-card metric endpoints.
type MetricsHandler struct {
	metrics MetricsService
	logger  *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler with the given service and
// logger.
func NewMetricsHandler(metrics MetricsService, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, logger: logger}
}

// VWAP returns the volume-weighted average price for a card.
// GET /api/cards/{id}/metrics/vwap?period=30d
func (h *MetricsHandler) VWAP(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.metrics.VWAP(r.Context(), pathParam(r, "id"), period, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "vwap")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EMA returns the exponential moving average for a card.
// GET /api/cards/{id}/metrics/ema?window=14
func (h *MetricsHandler) EMA(w http.ResponseWriter, r *http.Request) {
	window := 14
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "window must be an integer")
			return
		}
		window = n
	}

	res, err := h.metrics.EMA(r.Context(), pathParam(r, "id"), window, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "ema")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delta returns the price change over a period.
// GET /api/cards/{id}/metrics/delta?period=30d
func (h *MetricsHandler) Delta(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.metrics.Delta(r.Context(), pathParam(r, "id"), period, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "delta")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Floor returns per-partition floor prices.
// GET /api/cards/{id}/metrics/floor?period=30d&group=rarity_treatment&min_sales=3
func (h *MetricsHandler) Floor(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := domain.ParseGroupMode(r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	minSales := 0
	if v := r.URL.Query().Get("min_sales"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_sales must be an integer")
			return
		}
		minSales = n
	}

	res, err := h.metrics.Floor(r.Context(), pathParam(r, "id"), period, mode, minSales, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "floor")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Spread returns the current bid/ask spread.
// GET /api/cards/{id}/metrics/spread
func (h *MetricsHandler) Spread(w http.ResponseWriter, r *http.Request) {
	res, err := h.metrics.Spread(r.Context(), pathParam(r, "id"), parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "spread")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PriceToSale returns the ask-to-VWAP ratio.
// GET /api/cards/{id}/metrics/price-to-sale?period=30d
func (h *MetricsHandler) PriceToSale(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.metrics.PriceToSale(r.Context(), pathParam(r, "id"), period, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "price to sale")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TimeSeries returns a gap-free bucketed price series.
// GET /api/cards/{id}/metrics/series?period=90d&interval=1w
func (h *MetricsHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interval := domain.IntervalDaily
	if v := r.URL.Query().Get("interval"); v != "" {
		interval, err = domain.ParseInterval(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := h.metrics.TimeSeries(r.Context(), pathParam(r, "id"), period, interval, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "time series")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MarketFloor returns per-partition floor prices aggregated across every
// card of a product type.
// GET /api/market/{product_type}/metrics/floor?period=30d&group=rarity&min_sales=3
func (h *MetricsHandler) MarketFloor(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := domain.ParseGroupMode(r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	minSales := 0
	if v := r.URL.Query().Get("min_sales"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_sales must be an integer")
			return
		}
		minSales = n
	}

	pt := domain.ProductType(pathParam(r, "product_type"))
	res, err := h.metrics.FloorByProductType(r.Context(), pt, period, mode, minSales, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "market floor")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MarketTimeSeries returns a bucketed price series aggregated across every
// card of a product type.
// GET /api/market/{product_type}/metrics/series?period=90d&interval=1w
func (h *MetricsHandler) MarketTimeSeries(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interval := domain.IntervalDaily
	if v := r.URL.Query().Get("interval"); v != "" {
		interval, err = domain.ParseInterval(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	pt := domain.ProductType(pathParam(r, "product_type"))
	res, err := h.metrics.TimeSeriesByProductType(r.Context(), pt, period, interval, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "market time series")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Comprehensive returns every metric for a card from one shared fetch.
// GET /api/cards/{id}/metrics?period=30d
func (h *MetricsHandler) Comprehensive(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, domain.Period30D)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.metrics.Comprehensive(r.Context(), pathParam(r, "id"), period, parseFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "comprehensive metrics")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
