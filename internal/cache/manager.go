// Package cache implements the engine's two-tier Cache Manager (spec
// §4.2): a bounded in-process LRU backed optionally by a shared Redis
// tier. The shared tier is an accelerant, never authoritative — a miss
// must fall through to it before the manager declares absence, and
// cache is never consulted for tombstoning.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/internal/telemetry"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// TTLTable maps risk level to the cache lifetime from spec §3.
type TTLTable struct {
	Critical, High, Medium, Low, Safe time.Duration
}

// TTLFor returns the configured TTL for a risk level.
func (t TTLTable) TTLFor(level scanmodel.RiskLevel) time.Duration {
	switch level {
	case scanmodel.RiskCritical:
		return t.Critical
	case scanmodel.RiskHigh:
		return t.High
	case scanmodel.RiskMedium:
		return t.Medium
	case scanmodel.RiskLow:
		return t.Low
	default:
		return t.Safe
	}
}

// Payload wraps a cached value with the tier that served it and its age.
type Payload[T any] struct {
	Value T
	Tier  string // "local" | "shared"
	AgeSeconds int64
}

// Manager is the two-tier cache over scan results and reachability
// records.
type Manager struct {
	local *lru
	redis *redis.Client
	ttls  TTLTable
}

// New builds a Manager. redisClient may be nil, in which case the
// in-process tier is the whole cache.
func New(capacity int, redisClient *redis.Client, ttls TTLTable) *Manager {
	return &Manager{local: newLRU(capacity), redis: redisClient, ttls: ttls}
}

const (
	scanPrefix  = "urlscan:scan:"
	reachPrefix = "urlscan:reach:"
)

// GetScan returns the cached FinalScanResult for urlHash, if any.
func (m *Manager) GetScan(ctx context.Context, urlHash string) (*Payload[scanmodel.FinalScanResult], bool) {
	if v, insertedAt, ok := m.local.get(scanPrefix + urlHash); ok {
		telemetry.CacheHitsTotal.WithLabelValues("local", "hit").Inc()
		result := v.(scanmodel.FinalScanResult)
		return &Payload[scanmodel.FinalScanResult]{Value: result, Tier: "local", AgeSeconds: int64(time.Since(insertedAt).Seconds())}, true
	}
	telemetry.CacheHitsTotal.WithLabelValues("local", "miss").Inc()

	if m.redis == nil {
		return nil, false
	}
	raw, err := m.redis.Get(ctx, scanPrefix+urlHash).Result()
	if err != nil {
		telemetry.CacheHitsTotal.WithLabelValues("shared", "miss").Inc()
		return nil, false
	}
	var wrapped struct {
		Result    scanmodel.FinalScanResult `json:"result"`
		InsertedAt time.Time                `json:"insertedAt"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		telemetry.CacheHitsTotal.WithLabelValues("shared", "miss").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("shared", "hit").Inc()

	// Warm the local tier so the next lookup is cheap.
	ttl := m.ttls.TTLFor(wrapped.Result.RiskLevel)
	m.local.put(scanPrefix+urlHash, wrapped.Result, ttl)

	return &Payload[scanmodel.FinalScanResult]{
		Value: wrapped.Result, Tier: "shared",
		AgeSeconds: int64(time.Since(wrapped.InsertedAt).Seconds()),
	}, true
}

// PutScan stores result under urlHash, computing its TTL from
// result.RiskLevel.
func (m *Manager) PutScan(ctx context.Context, urlHash string, result scanmodel.FinalScanResult) error {
	ttl := m.ttls.TTLFor(result.RiskLevel)
	m.local.put(scanPrefix+urlHash, result, ttl)

	if m.redis == nil {
		return nil
	}
	wrapped := struct {
		Result     scanmodel.FinalScanResult `json:"result"`
		InsertedAt time.Time                 `json:"insertedAt"`
	}{Result: result, InsertedAt: time.Now()}
	raw, err := json.Marshal(wrapped)
	if err != nil {
		return scanerr.Cache("marshalling scan result for shared cache", err)
	}
	if err := m.redis.Set(ctx, scanPrefix+urlHash, raw, ttl).Err(); err != nil {
		// Shared tier failures are non-fatal: the local tier is the
		// safety net per spec §5.
		return scanerr.Cache("writing scan result to shared cache", err)
	}
	return nil
}

// GetReach returns the cached ReachabilityRecord for domain, if any.
func (m *Manager) GetReach(ctx context.Context, domain string) (*Payload[scanmodel.ReachabilityRecord], bool) {
	if v, insertedAt, ok := m.local.get(reachPrefix + domain); ok {
		record := v.(scanmodel.ReachabilityRecord)
		return &Payload[scanmodel.ReachabilityRecord]{Value: record, Tier: "local", AgeSeconds: int64(time.Since(insertedAt).Seconds())}, true
	}
	if m.redis == nil {
		return nil, false
	}
	raw, err := m.redis.Get(ctx, reachPrefix+domain).Result()
	if err != nil {
		return nil, false
	}
	var record scanmodel.ReachabilityRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, false
	}
	m.local.put(reachPrefix+domain, record, reachTTL)
	return &Payload[scanmodel.ReachabilityRecord]{Value: record, Tier: "shared"}, true
}

// reachTTL is short: reachability state (especially PARKED/SINKHOLE)
// can change between scans and isn't governed by the risk-keyed table.
const reachTTL = 2 * time.Minute

// PutReach caches a reachability record for domain.
func (m *Manager) PutReach(ctx context.Context, domain string, record scanmodel.ReachabilityRecord) error {
	m.local.put(reachPrefix+domain, record, reachTTL)
	if m.redis == nil {
		return nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return scanerr.Cache("marshalling reachability record", err)
	}
	if err := m.redis.Set(ctx, reachPrefix+domain, raw, reachTTL).Err(); err != nil {
		return scanerr.Cache("writing reachability record to shared cache", err)
	}
	return nil
}

// ClearAll empties the local tier. The shared tier, if present, is left
// alone (it is shared with other processes).
func (m *Manager) ClearAll() {
	m.local.clear()
}

// LocalLen reports the number of entries currently in the in-process
// tier — used by tests and diagnostics.
func (m *Manager) LocalLen() int {
	return m.local.len()
}
