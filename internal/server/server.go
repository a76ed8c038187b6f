// Package server assembles the HTTP API for the analytics engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/server/handler"
	"github.com/mwehr/cardpulse/internal/server/middleware"
	"github.com/mwehr/cardpulse/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per window per client; 0 disables limiting
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Cards   *handler.CardHandler
	Metrics *handler.MetricsHandler
	Ingest  *handler.IngestHandler
	Archive *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for the analytics engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (request IDs, logging, rate limiting, CORS, auth)
// and attaches the WebSocket hub. A nil limiter disables rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Card metadata.
	mux.HandleFunc("GET /api/cards", handlers.Cards.ListCards)
	mux.HandleFunc("POST /api/cards", handlers.Cards.UpsertCard)
	mux.HandleFunc("GET /api/cards/{id}", handlers.Cards.GetCard)

	// Per-card metrics. The bare metrics path is the comprehensive bundle.
	mux.HandleFunc("GET /api/cards/{id}/metrics", handlers.Metrics.Comprehensive)
	mux.HandleFunc("GET /api/cards/{id}/metrics/vwap", handlers.Metrics.VWAP)
	mux.HandleFunc("GET /api/cards/{id}/metrics/ema", handlers.Metrics.EMA)
	mux.HandleFunc("GET /api/cards/{id}/metrics/delta", handlers.Metrics.Delta)
	mux.HandleFunc("GET /api/cards/{id}/metrics/floor", handlers.Metrics.Floor)
	mux.HandleFunc("GET /api/cards/{id}/metrics/spread", handlers.Metrics.Spread)
	mux.HandleFunc("GET /api/cards/{id}/metrics/price-to-sale", handlers.Metrics.PriceToSale)
	mux.HandleFunc("GET /api/cards/{id}/metrics/series", handlers.Metrics.TimeSeries)

	// Product-type aggregate metrics, e.g. the market-wide Box floor.
	mux.HandleFunc("GET /api/market/{product_type}/metrics/floor", handlers.Metrics.MarketFloor)
	mux.HandleFunc("GET /api/market/{product_type}/metrics/series", handlers.Metrics.MarketTimeSeries)

	// Ingestion write surface.
	mux.HandleFunc("POST /api/observations", handlers.Ingest.IngestObservations)
	mux.HandleFunc("POST /api/snapshots", handlers.Ingest.RecordSnapshot)

	// Retention. Registered only when object storage is wired.
	if handlers.Archive != nil {
		mux.HandleFunc("POST /api/archive/trigger", handlers.Archive.Trigger)
		mux.HandleFunc("GET /api/archive", handlers.Archive.List)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.RequestID()(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
