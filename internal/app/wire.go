package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mwehr/cardpulse/internal/blob/s3"
	"github.com/mwehr/cardpulse/internal/cache/redis"
	"github.com/mwehr/cardpulse/internal/config"
	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/notify"
	"github.com/mwehr/cardpulse/internal/server/handler"
	"github.com/mwehr/cardpulse/internal/service"
	"github.com/mwehr/cardpulse/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	CardStore        domain.CardStore
	ObservationStore domain.ObservationStore
	ListingStore     domain.ListingStore

	// Caches and coordination
	MetricCache domain.MetricCache
	RateLimiter domain.RateLimiter
	Locker      domain.Locker
	UpdateBus   domain.UpdateBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Services
	Metrics *service.MetricsService
	Cards   *service.CardService
	Ingest  *service.IngestService

	// Notifications
	Notifier *notify.Notifier

	// Health probes, keyed by component name.
	Pingers map[string]handler.Pinger
}

// needsS3 returns true for modes that require object storage. The server
// mode wires it opportunistically when a bucket is configured, so the
// archive endpoints work without forcing every deployment to run MinIO.
func needsS3(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// pingerFunc adapts a plain function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)
	deps.Pingers["postgres"] = pingerFunc(pgClient.Ping)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	obsStore := postgres.NewObservationStore(pool)
	deps.CardStore = postgres.NewCardStore(pool)
	deps.ObservationStore = obsStore
	deps.ListingStore = postgres.NewListingStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.Pingers["redis"] = pingerFunc(redisClient.Ping)

	deps.MetricCache = redis.NewMetricCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Locker = redis.NewLockManager(redisClient)
	deps.UpdateBus = redis.NewUpdateBus(redisClient)

	// --- S3 blob storage ---
	if needsS3(cfg.Mode) || (cfg.Mode == "server" && cfg.S3.Bucket != "") {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Pingers["s3"] = pingerFunc(s3Client.Health)

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, obsStore, logger)
	}

	// --- Services ---
	deps.Metrics = service.NewMetricsService(
		deps.CardStore,
		deps.ObservationStore,
		deps.ListingStore,
		deps.MetricCache,
		logger,
		service.EngineOptions{
			CacheTTL:      cfg.Engine.CacheTTL.Duration,
			DeltaBoundary: cfg.Engine.DeltaBoundary.Duration,
			MinSales:      cfg.Engine.MinSales,
		},
	)
	deps.Cards = service.NewCardService(deps.CardStore, logger)
	deps.Ingest = service.NewIngestService(deps.ObservationStore, deps.ListingStore, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
