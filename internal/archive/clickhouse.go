package archive

import (
	"context"
	"fmt"

	"PolyPulse/internal/domain/models"
	"PolyPulse/pkg/clickhouse"
	"PolyPulse/pkg/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS mention_samples (
		keyword       String,
		count         UInt32,
		spike_percent Float64,
		is_spike      UInt8,
		observed_at   DateTime
	) ENGINE = MergeTree()
	ORDER BY (keyword, observed_at)
	TTL observed_at + INTERVAL 90 DAY`,
}

// MentionArchive persists per-pass mention samples to ClickHouse for
// offline analysis. Writes are async inserts; a failed batch costs
// history, never a refresh cycle.
type MentionArchive struct {
	client *clickhouse.Client
	log    *logger.Logger
}

// NewMentionArchive creates the archive and ensures the table exists.
func NewMentionArchive(ctx context.Context, client *clickhouse.Client, log *logger.Logger) (*MentionArchive, error) {
	if err := client.InitSchema(ctx, schema); err != nil {
		return nil, fmt.Errorf("mention archive schema: %w", err)
	}
	return &MentionArchive{client: client, log: log}, nil
}

// ArchiveSamples inserts one row per sample.
func (a *MentionArchive) ArchiveSamples(ctx context.Context, samples []models.MentionSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO mention_samples (keyword, count, spike_percent, is_spike, observed_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		isSpike := uint8(0)
		if s.IsSpike {
			isSpike = 1
		}
		if _, err := stmt.ExecContext(ctx, s.Keyword, uint32(s.Count), s.SpikePercent, isSpike, s.At); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive commit: %w", err)
	}

	a.log.Debug("archived mention samples", logger.Int("count", len(samples)))
	return nil
}

// Close closes the underlying connection pool.
func (a *MentionArchive) Close() error {
	return a.client.Close()
}
