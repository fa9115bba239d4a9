package metapath

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultBatchSize bounds one migration transaction.
const DefaultBatchSize = 1000

// UntaggedRecord is one persisted row still lacking the version tag.
type UntaggedRecord struct {
	ID  int64
	Raw string
}

// PathUpdate is a normalized rewrite for one record.
type PathUpdate struct {
	ID      int64
	Encoded string // JSON array text
	Version string
}

// MigrationSource is the slice of the store the migrator needs: keyset-paged
// fetch of rows missing the tag, and an atomic batch rewrite.
type MigrationSource interface {
	UntaggedHeaderPaths(ctx context.Context, afterID int64, limit int) ([]UntaggedRecord, error)
	ApplyHeaderPaths(ctx context.Context, updates []PathUpdate) error
}

// MigrationStats summarizes one migration run.
type MigrationStats struct {
	Migrated int
	Skipped  int
	Batches  int
}

// Migrator rewrites legacy scalar header paths to the array shape in bounded
// batches, one transaction per batch, so it never holds a lock proportional
// to table size. Ambiguous records are logged and left in their legacy
// shape; live reads tolerate both shapes, so the migration is safe to run
// under traffic.
type Migrator struct {
	source    MigrationSource
	batchSize int
	log       *slog.Logger
}

// NewMigrator builds a migrator over source. batchSize <= 0 uses the
// default.
func NewMigrator(source MigrationSource, batchSize int, log *slog.Logger) *Migrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{source: source, batchSize: batchSize, log: log}
}

// Run migrates until no untagged records remain or ctx is cancelled.
func (m *Migrator) Run(ctx context.Context) (MigrationStats, error) {
	var stats MigrationStats
	var afterID int64

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		records, err := m.source.UntaggedHeaderPaths(ctx, afterID, m.batchSize)
		if err != nil {
			return stats, fmt.Errorf("fetch untagged batch: %w", err)
		}
		if len(records) == 0 {
			return stats, nil
		}

		updates := make([]PathUpdate, 0, len(records))
		for _, rec := range records {
			afterID = rec.ID

			hp, err := Normalize(rec.Raw)
			if err != nil {
				m.log.Warn("header_path left in legacy shape",
					"record_id", rec.ID,
					"error", err,
				)
				stats.Skipped++
				continue
			}
			encoded, err := EncodeSegments(hp.Segments)
			if err != nil {
				return stats, err
			}
			updates = append(updates, PathUpdate{ID: rec.ID, Encoded: encoded, Version: hp.SchemaVersion})
		}

		if len(updates) > 0 {
			if err := m.source.ApplyHeaderPaths(ctx, updates); err != nil {
				return stats, fmt.Errorf("apply batch: %w", err)
			}
			stats.Migrated += len(updates)
			stats.Batches++
		}

		if len(records) < m.batchSize {
			return stats, nil
		}
	}
}
