// Package tombstone implements the persistent "known-malicious" fast
// path (spec §4.3), backed by PostgreSQL via pgxpool — adapted directly
// from the teacher's internal/db/postgres.go connection pattern.
package tombstone

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Store persists Tombstones in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and pings it, mirroring
// db.Connect in the teacher.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("tombstone: unable to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("tombstone: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS tombstones (
	url_hash        TEXT PRIMARY KEY,
	url             TEXT NOT NULL,
	verdict         TEXT NOT NULL,
	source          TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	confirmed_date  TIMESTAMPTZ NOT NULL,
	metadata        JSONB
);
`

// InitSchema creates the tombstones table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("tombstone: schema init failed: %w", err)
	}
	return nil
}

// Check looks up a tombstone by urlHash. A CacheError-shaped "miss" is
// represented as (nil, nil) — absence is not itself an error.
func (s *Store) Check(ctx context.Context, urlHash string) (*scanmodel.Tombstone, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT url_hash, url, verdict, source, confidence, confirmed_date
		FROM tombstones WHERE url_hash = $1`, urlHash)

	var t scanmodel.Tombstone
	var verdict, source string
	if err := row.Scan(&t.URLHash, &t.URL, &verdict, &source, &t.Confidence, &t.ConfirmedDate); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, scanerr.Persistence("tombstone lookup failed", err)
	}
	t.Verdict = scanmodel.RiskLevel(verdict)
	t.Source = scanmodel.TombstoneSource(source)
	return &t, nil
}

// Create inserts a tombstone, treating a unique-constraint collision as
// success (spec §4.3: "idempotent on hash").
func (s *Store) Create(ctx context.Context, urlHash, url string, source scanmodel.TombstoneSource, confidence float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tombstones (url_hash, url, verdict, source, confidence, confirmed_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url_hash) DO NOTHING`,
		urlHash, url, string(scanmodel.RiskCritical), string(source), confidence, time.Now())
	if err != nil {
		return scanerr.Persistence("tombstone create failed", err)
	}
	return nil
}

// Remove deletes a tombstone (administrative action only).
func (s *Store) Remove(ctx context.Context, urlHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tombstones WHERE url_hash = $1`, urlHash); err != nil {
		return scanerr.Persistence("tombstone remove failed", err)
	}
	return nil
}

// ListRecent returns the n most recently confirmed tombstones.
func (s *Store) ListRecent(ctx context.Context, n int) ([]scanmodel.Tombstone, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT url_hash, url, verdict, source, confidence, confirmed_date
		FROM tombstones ORDER BY confirmed_date DESC LIMIT $1`, n)
	if err != nil {
		return nil, scanerr.Persistence("tombstone list failed", err)
	}
	defer rows.Close()

	var out []scanmodel.Tombstone
	for rows.Next() {
		var t scanmodel.Tombstone
		var verdict, source string
		if err := rows.Scan(&t.URLHash, &t.URL, &verdict, &source, &t.Confidence, &t.ConfirmedDate); err != nil {
			return nil, scanerr.Persistence("tombstone row scan failed", err)
		}
		t.Verdict = scanmodel.RiskLevel(verdict)
		t.Source = scanmodel.TombstoneSource(source)
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetStats summarizes the store for admin/diagnostic endpoints.
func (s *Store) GetStats(ctx context.Context) (scanmodel.TombstoneStats, error) {
	stats := scanmodel.TombstoneStats{BySource: make(map[scanmodel.TombstoneSource]int)}

	row := s.pool.QueryRow(ctx, `SELECT COUNT(*), MIN(confirmed_date), MAX(confirmed_date) FROM tombstones`)
	var oldest, newest *time.Time
	if err := row.Scan(&stats.Total, &oldest, &newest); err != nil {
		return stats, scanerr.Persistence("tombstone stats failed", err)
	}
	if oldest != nil {
		stats.OldestEntry = *oldest
	}
	if newest != nil {
		stats.NewestEntry = *newest
	}

	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM tombstones GROUP BY source`)
	if err != nil {
		return stats, scanerr.Persistence("tombstone stats by-source failed", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return stats, scanerr.Persistence("tombstone stats row scan failed", err)
		}
		stats.BySource[scanmodel.TombstoneSource(source)] = count
	}
	return stats, rows.Err()
}

// CheckTIConsensus creates a tombstone when at least minSources TI
// results report "malicious" with individual confidence >= minConfidence
// (spec §4.3). The stored confidence is the mean confidence of those
// qualifying sources.
func (s *Store) CheckTIConsensus(ctx context.Context, urlHash, url string, tiResults []scanmodel.TISourceResult, minSources int, minConfidence float64) (bool, error) {
	var qualifying []scanmodel.TISourceResult
	for _, r := range tiResults {
		if r.Verdict == scanmodel.TIVerdictMalicious && r.Confidence >= minConfidence {
			qualifying = append(qualifying, r)
		}
	}
	if len(qualifying) < minSources {
		return false, nil
	}

	var sum float64
	for _, r := range qualifying {
		sum += r.Confidence
	}
	mean := sum / float64(len(qualifying))

	if err := s.Create(ctx, urlHash, url, scanmodel.TombstoneSourceTIConsens, mean); err != nil {
		return false, err
	}
	return true, nil
}
