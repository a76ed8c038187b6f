package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/notify"
)

// MetricsProvider is the slice of the metrics service the warmer needs.
type MetricsProvider interface {
	Comprehensive(ctx context.Context, cardID string, period domain.Period, f domain.ObservationFilter) (domain.ComprehensiveMetrics, error)
}

// CardLookup resolves card metadata for alert messages.
type CardLookup interface {
	GetCard(ctx context.Context, id string) (domain.Card, error)
}

// WarmerConfig tunes the cache warmer.
type WarmerConfig struct {
	// Watchlist is the set of card IDs to keep warm.
	Watchlist []string
	// Period is the comprehensive-metrics period to precompute.
	Period domain.Period
	// Interval is how often the watchlist is recomputed.
	Interval time.Duration
	// Concurrency bounds parallel recomputations.
	Concurrency int
	// AlertThresholdPct triggers a price alert when the absolute daily
	// delta percentage meets or exceeds it. Zero disables alerts.
	AlertThresholdPct float64
}

// Warmer periodically recomputes comprehensive metrics for a watchlist so
// dashboard reads stay cache-hot, publishes each refresh on the update bus,
// and raises price alerts for large daily moves.
type Warmer struct {
	metrics  MetricsProvider
	cards    CardLookup
	bus      domain.UpdateBus
	notifier *notify.Notifier
	cfg      WarmerConfig
	logger   *slog.Logger
}

// NewWarmer creates a Warmer. A nil bus disables publishing; a nil notifier
// disables alerts.
func NewWarmer(metrics MetricsProvider, cards CardLookup, bus domain.UpdateBus, notifier *notify.Notifier, cfg WarmerConfig, logger *slog.Logger) *Warmer {
	if cfg.Period == "" {
		cfg.Period = domain.Period30D
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Warmer{
		metrics:  metrics,
		cards:    cards,
		bus:      bus,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "pipeline.warmer")),
	}
}

// Run recomputes the watchlist immediately and then on every tick until the
// context is cancelled.
func (w *Warmer) Run(ctx context.Context) error {
	if len(w.cfg.Watchlist) == 0 {
		w.logger.Info("warmer idle, empty watchlist")
		<-ctx.Done()
		return ctx.Err()
	}

	w.logger.Info("warmer started",
		slog.Int("watchlist", len(w.cfg.Watchlist)),
		slog.Duration("interval", w.cfg.Interval),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.warmAll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("warmer stopped")
			return ctx.Err()
		case <-ticker.C:
			w.warmAll(ctx)
		}
	}
}

// warmAll refreshes every watched card with bounded concurrency. Per-card
// failures are logged and do not abort the sweep.
func (w *Warmer) warmAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for _, cardID := range w.cfg.Watchlist {
		cardID := cardID
		g.Go(func() error {
			if err := w.warmOne(gctx, cardID); err != nil {
				w.logger.WarnContext(gctx, "warm failed",
					slog.String("card_id", cardID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (w *Warmer) warmOne(ctx context.Context, cardID string) error {
	m, err := w.metrics.Comprehensive(ctx, cardID, w.cfg.Period, domain.ObservationFilter{})
	if err != nil {
		return fmt.Errorf("pipeline: warm %s: %w", cardID, err)
	}

	if w.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"type":    "metrics",
			"card_id": cardID,
			"payload": m,
		})
		if err == nil {
			if err := w.bus.Publish(ctx, domain.MetricUpdateChannel(cardID), payload); err != nil {
				w.logger.WarnContext(ctx, "publish failed",
					slog.String("card_id", cardID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	w.maybeAlert(ctx, cardID, m)
	return nil
}

// maybeAlert raises a price alert when the daily delta crosses the
// configured threshold.
func (w *Warmer) maybeAlert(ctx context.Context, cardID string, m domain.ComprehensiveMetrics) {
	if w.notifier == nil || w.cfg.AlertThresholdPct <= 0 {
		return
	}
	pct := m.Delta1D.Percent
	if pct == nil {
		return
	}
	moved := *pct
	if moved < 0 {
		moved = -moved
	}
	if moved < w.cfg.AlertThresholdPct {
		return
	}

	card, err := w.cards.GetCard(ctx, cardID)
	if err != nil {
		w.logger.WarnContext(ctx, "alert card lookup failed",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()),
		)
		return
	}

	event, title, message := notify.PriceAlert(card, m.Delta1D)
	if err := w.notifier.Notify(ctx, event, title, message); err != nil {
		w.logger.WarnContext(ctx, "price alert failed",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()),
		)
	}
}
