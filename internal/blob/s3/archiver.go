package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

// ObservationArchiveStore is the narrow slice of the observation store the
// archiver needs: reading aged rows and deleting them once exported.
type ObservationArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver implements domain.Archiver by exporting aged price observations
// as NDJSON to object storage and then deleting them from the primary
// store. The delete runs only after the upload succeeds, so a failed sweep
// never loses data; re-running after a partial failure re-exports the same
// rows under a new key.
type Archiver struct {
	writer domain.BlobWriter
	obs    ObservationArchiveStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver with the given blob writer and store.
func NewArchiver(writer domain.BlobWriter, obs ObservationArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		obs:    obs,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveObservations exports every observation older than the cutoff to
// cold storage and removes it from the database. It returns the number of
// observations archived.
func (a *Archiver) ArchiveObservations(ctx context.Context, before time.Time) (int64, error) {
	obs, err := a.obs.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive observations query: %w", err)
	}
	if len(obs) == 0 {
		return 0, nil
	}

	buf, err := marshalNDJSON(obs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive observations marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive observations upload: %w", err)
	}

	deleted, err := a.obs.DeleteBefore(ctx, before)
	if err != nil {
		// The export is durable; surface the failed delete so the sweep is
		// retried rather than silently leaving rows behind.
		return 0, fmt.Errorf("s3blob: archive observations delete: %w", err)
	}

	a.logger.InfoContext(ctx, "archived observations",
		slog.String("path", path),
		slog.Int("exported", len(obs)),
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
	)

	return int64(len(obs)), nil
}

// archivePath builds the object key for a sweep, partitioned by cutoff
// month and disambiguated by the cutoff timestamp:
//
//	archive/observations/2026-02/20260301T000000Z.ndjson
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/observations/%s/%s.ndjson",
		before.Format("2006-01"),
		before.UTC().Format("20060102T150405Z"),
	)
}

// marshalNDJSON serialises records as newline-delimited JSON, one compact
// line per record.
func marshalNDJSON[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("ndjson encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
