// Package resultstore persists FinalScanResult values idempotently,
// keyed by scanId, the way the teacher's internal/db.PostgresStore
// persists transaction heuristics keyed by (block_height, txid).
package resultstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Store persists FinalScanResult rows in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens and verifies the connection pool.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, scanerr.Persistence("unable to connect to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, scanerr.Persistence("ping failed", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the scan_results table if it doesn't already
// exist.
func (s *Store) InitSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS scan_results (
	scan_id      TEXT PRIMARY KEY,
	url_hash     TEXT NOT NULL,
	risk_level   TEXT NOT NULL,
	final_score  DOUBLE PRECISION NOT NULL,
	result       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_scan_results_url_hash ON scan_results (url_hash);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return scanerr.Persistence("failed to initialize scan_results schema", err)
	}
	return nil
}

// Save persists result idempotently keyed by ScanID: a re-scan under
// the same scanId (e.g. a retry after a transient write failure)
// overwrites rather than duplicating.
func (s *Store) Save(ctx context.Context, result scanmodel.FinalScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return scanerr.Persistence("failed to encode scan result", err)
	}

	const sql = `
INSERT INTO scan_results (scan_id, url_hash, risk_level, final_score, result, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (scan_id) DO UPDATE
SET url_hash = EXCLUDED.url_hash, risk_level = EXCLUDED.risk_level,
    final_score = EXCLUDED.final_score, result = EXCLUDED.result, updated_at = now()
`
	_, err = s.pool.Exec(ctx, sql, result.ScanID, result.URL.Hash, string(result.RiskLevel), result.FinalScore, payload)
	if err != nil {
		return scanerr.Persistence("failed to save scan result", err)
	}
	return nil
}

// Get loads a previously persisted result by scanId, returning
// (nil, nil) when none exists.
func (s *Store) Get(ctx context.Context, scanID string) (*scanmodel.FinalScanResult, error) {
	const sql = `SELECT result FROM scan_results WHERE scan_id = $1`
	var payload []byte
	err := s.pool.QueryRow(ctx, sql, scanID).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, scanerr.Persistence("failed to load scan result", err)
	}

	var result scanmodel.FinalScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, scanerr.Persistence("failed to decode scan result", err)
	}
	return &result, nil
}

// ListRecentByURLHash returns up to limit most-recent results for the
// given URL hash, newest first. A limit outside 1..100 falls back to 10.
func (s *Store) ListRecentByURLHash(ctx context.Context, hash string, limit int) ([]scanmodel.FinalScanResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const sql = `
SELECT result FROM scan_results
WHERE url_hash = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.pool.Query(ctx, sql, hash, limit)
	if err != nil {
		return nil, scanerr.Persistence("failed to list scan results", err)
	}
	defer rows.Close()

	var results []scanmodel.FinalScanResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, scanerr.Persistence("failed to scan scan_results row", err)
		}
		var result scanmodel.FinalScanResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, scanerr.Persistence("failed to decode scan result row", err)
		}
		results = append(results, result)
	}
	return results, nil
}
