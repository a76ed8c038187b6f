// Package pipeline contains the engine's scheduled background jobs: the
// retention archiver and the cache warmer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
	"github.com/mwehr/cardpulse/internal/notify"
)

// archiveLockKey guards the sweep so only one instance runs it at a time.
const archiveLockKey = "archive_sweep"

// archiveLockTTL bounds how long a crashed sweep can block the next one.
const archiveLockTTL = 15 * time.Minute

// Archiver moves aged observations from the database to cold storage on a
// cron schedule.
type Archiver struct {
	blobArchiver  domain.Archiver
	locker        domain.Locker
	notifier      *notify.Notifier
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver. A nil locker disables cross-instance
// exclusion; a nil notifier disables completion alerts.
func NewArchiver(blobArchiver domain.Archiver, locker domain.Locker, notifier *notify.Notifier, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:  blobArchiver,
		locker:        locker,
		notifier:      notifier,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "pipeline.archiver")),
	}
}

// Run executes a single sweep. It archives every observation older than the
// retention cutoff; when another instance holds the sweep lock the run is
// skipped without error.
func (a *Archiver) Run(ctx context.Context) error {
	if a.locker != nil {
		unlock, err := a.locker.Acquire(ctx, archiveLockKey, archiveLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "archive sweep already running elsewhere, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline: acquire archive lock: %w", err)
		}
		defer unlock()
	}

	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.InfoContext(ctx, "starting archive sweep",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	archived, err := a.blobArchiver.ArchiveObservations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archiving observations before %v: %w", cutoff, err)
	}

	a.logger.InfoContext(ctx, "archive sweep complete",
		slog.Int64("archived", archived),
	)

	if a.notifier != nil && archived > 0 {
		title := "Archive sweep complete"
		message := fmt.Sprintf("%d observations older than %s moved to cold storage",
			archived, cutoff.Format("2006-01-02"))
		if err := a.notifier.Notify(ctx, notify.EventArchiveComplete, title, message); err != nil {
			a.logger.WarnContext(ctx, "archive notification failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// RunCron runs the archiver on a cron schedule until the context is
// cancelled. It supports cron expressions in the standard 5-field format:
// "minute hour day-of-month month day-of-week".
//
// Example: "0 3 * * *" runs at 3:00 AM every day.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("pipeline: parsing cron expression %q: %w", cronExpr, err)
		}

		waitDuration := time.Until(next)
		a.logger.Info("archiver waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", waitDuration),
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
