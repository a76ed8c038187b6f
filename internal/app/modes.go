package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/pipeline"
	"github.com/mwehr/cardpulse/internal/server"
	"github.com/mwehr/cardpulse/internal/server/handler"
	"github.com/mwehr/cardpulse/internal/server/ws"
)

// ServerMode runs the HTTP + WebSocket API only. Metrics are computed on
// demand; no background jobs run.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running in server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs only the cron-scheduled retention sweep.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running in archive mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiveSweep(ctx, g, deps)
	return g.Wait()
}

// WarmMode runs only the watchlist cache warmer.
func (a *App) WarmMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running in warm mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWarmer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server, the cache warmer, and the retention sweep in
// one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running in full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	a.startWarmer(ctx, g, deps)
	a.startArchiveSweep(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer adds the API server and its WebSocket hub to the given
// errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled")
		return
	}

	hub := ws.NewHub(deps.UpdateBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Pingers, a.logger),
		Cards:   handler.NewCardHandler(deps.Cards, a.logger),
		Metrics: handler.NewMetricsHandler(deps.Metrics, a.logger),
		Ingest:  handler.NewIngestHandler(deps.Ingest, a.logger),
	}
	if deps.Archiver != nil && deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.Archiver, deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startWarmer adds the watchlist cache warmer to the given errgroup.
func (a *App) startWarmer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	warmer := pipeline.NewWarmer(
		deps.Metrics,
		deps.Cards,
		deps.UpdateBus,
		deps.Notifier,
		pipeline.WarmerConfig{
			Watchlist:         a.cfg.Pipeline.Watchlist,
			Period:            domain.Period30D,
			Interval:          a.cfg.Pipeline.WarmInterval.Duration,
			Concurrency:       a.cfg.Pipeline.WarmConcurrency,
			AlertThresholdPct: a.cfg.Pipeline.AlertThresholdPct,
		},
		a.logger,
	)
	g.Go(func() error {
		return warmer.Run(ctx)
	})
}

// startArchiveSweep adds the cron-scheduled retention sweep to the given
// errgroup. It is a no-op when object storage is not wired.
func (a *App) startArchiveSweep(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		a.logger.WarnContext(ctx, "archive sweep disabled: object storage not configured")
		return
	}

	sweep := pipeline.NewArchiver(
		deps.Archiver,
		deps.Locker,
		deps.Notifier,
		a.cfg.Pipeline.RetentionDays,
		a.logger,
	)
	cronExpr := a.cfg.Pipeline.ArchiveCron
	g.Go(func() error {
		return sweep.RunCron(ctx, cronExpr)
	})
}
