package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroPulse/internal/domain/models"
	pkgch "MacroPulse/pkg/clickhouse"
	applogger "MacroPulse/pkg/logger"
)

// ArchiveSchema returns the statements that create the event archive
// table. The ReplacingMergeTree keyed on the natural event key makes
// replayed duplicates collapse server-side.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.indicator_events (
			indicator_key String,
			asset         String,
			raw_score     Float64,
			observed_at   DateTime64(3, 'UTC'),
			ingested_at   DateTime64(3, 'UTC'),
			source_id     String
		) ENGINE = ReplacingMergeTree(ingested_at)
		ORDER BY (indicator_key, observed_at)`, database),
	}
}

// CHEventArchive is an append-only durable copy of accepted events,
// backed by ClickHouse. It exists for replay after restart; the in-memory
// store stays authoritative.
type CHEventArchive struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

// NewCHEventArchive creates an archive writing to database.indicator_events.
func NewCHEventArchive(client *pkgch.Client, database string, l *applogger.Logger) *CHEventArchive {
	return &CHEventArchive{
		client: client,
		db:     client.DB(),
		table:  database + ".indicator_events",
		l:      l,
	}
}

// Append writes a batch of accepted events to the archive.
func (a *CHEventArchive) Append(ctx context.Context, events []models.IndicatorEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	placeholders := make([]string, len(events))
	args := make([]interface{}, 0, len(events)*6)
	for i, ev := range events {
		placeholders[i] = "(?, ?, ?, ?, ?, ?)"
		args = append(args, ev.IndicatorKey, ev.Asset, ev.RawScore, ev.ObservedAt, ev.IngestedAt, ev.SourceID)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (indicator_key, asset, raw_score, observed_at, ingested_at, source_id) VALUES %s",
		a.table, strings.Join(placeholders, ", "),
	)
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive append error",
				applogger.Int("events", len(events)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("archive append: %w", err)
	}

	if a.l != nil {
		a.l.Debug("clickhouse archive append ok",
			applogger.Int("events", len(events)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// ReadRange returns archived events with observed_at in [from, to],
// ordered by indicator key then observed time.
func (a *CHEventArchive) ReadRange(ctx context.Context, from, to time.Time) ([]models.IndicatorEvent, error) {
	q := fmt.Sprintf(`
		SELECT indicator_key, asset, raw_score, observed_at, ingested_at, source_id
		FROM %s FINAL
		WHERE observed_at >= ? AND observed_at <= ?
		ORDER BY indicator_key, observed_at
	`, a.table)

	rows, err := a.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("archive read: %w", err)
	}
	defer rows.Close()

	out := make([]models.IndicatorEvent, 0, 1024)
	for rows.Next() {
		var ev models.IndicatorEvent
		if err := rows.Scan(&ev.IndicatorKey, &ev.Asset, &ev.RawScore, &ev.ObservedAt, &ev.IngestedAt, &ev.SourceID); err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Health performs a connectivity check.
func (a *CHEventArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

// Close closes the underlying client.
func (a *CHEventArchive) Close() error {
	return a.client.Close()
}
