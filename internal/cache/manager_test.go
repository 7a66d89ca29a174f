package cache

import (
	"context"
	"testing"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func testTTLs() TTLTable {
	return TTLTable{
		Critical: 5 * time.Minute,
		High:     30 * time.Minute,
		Medium:   time.Hour,
		Low:      4 * time.Hour,
		Safe:     24 * time.Hour,
	}
}

func TestPutGetScanLocalOnly(t *testing.T) {
	m := New(10, nil, testTTLs())
	ctx := context.Background()

	result := scanmodel.FinalScanResult{ScanID: "s1", RiskLevel: scanmodel.RiskSafe, FinalScore: 1}
	if err := m.PutScan(ctx, "hash1", result); err != nil {
		t.Fatalf("PutScan() error = %v", err)
	}

	got, ok := m.GetScan(ctx, "hash1")
	if !ok {
		t.Fatal("GetScan() miss, want hit")
	}
	if got.Value.ScanID != "s1" {
		t.Errorf("ScanID = %q, want s1", got.Value.ScanID)
	}
	if got.Tier != "local" {
		t.Errorf("Tier = %q, want local", got.Tier)
	}
}

func TestGetScanMissIsClean(t *testing.T) {
	m := New(10, nil, testTTLs())
	if _, ok := m.GetScan(context.Background(), "nonexistent"); ok {
		t.Fatal("GetScan() hit, want miss")
	}
}

func TestLRUEviction(t *testing.T) {
	m := New(2, nil, testTTLs())
	ctx := context.Background()

	m.PutScan(ctx, "a", scanmodel.FinalScanResult{ScanID: "a", RiskLevel: scanmodel.RiskSafe})
	m.PutScan(ctx, "b", scanmodel.FinalScanResult{ScanID: "b", RiskLevel: scanmodel.RiskSafe})
	m.PutScan(ctx, "c", scanmodel.FinalScanResult{ScanID: "c", RiskLevel: scanmodel.RiskSafe})

	if m.LocalLen() > 2 {
		t.Errorf("LocalLen() = %d, want <= 2 after eviction", m.LocalLen())
	}
	if _, ok := m.GetScan(ctx, "a"); ok {
		t.Error("GetScan(a) hit after expected eviction, want miss")
	}
	if _, ok := m.GetScan(ctx, "c"); !ok {
		t.Error("GetScan(c) miss, want hit (most recently inserted)")
	}
}

func TestTTLTableBandsByRiskLevel(t *testing.T) {
	ttls := testTTLs()
	cases := []struct {
		level scanmodel.RiskLevel
		want  time.Duration
	}{
		{scanmodel.RiskCritical, 5 * time.Minute},
		{scanmodel.RiskHigh, 30 * time.Minute},
		{scanmodel.RiskMedium, time.Hour},
		{scanmodel.RiskLow, 4 * time.Hour},
		{scanmodel.RiskSafe, 24 * time.Hour},
	}
	for _, c := range cases {
		if got := ttls.TTLFor(c.level); got != c.want {
			t.Errorf("TTLFor(%s) = %v, want %v", c.level, got, c.want)
		}
	}
}

func TestClearAll(t *testing.T) {
	m := New(10, nil, testTTLs())
	ctx := context.Background()
	m.PutScan(ctx, "a", scanmodel.FinalScanResult{ScanID: "a", RiskLevel: scanmodel.RiskSafe})
	m.ClearAll()
	if _, ok := m.GetScan(ctx, "a"); ok {
		t.Fatal("GetScan() hit after ClearAll(), want miss")
	}
}

func TestReachRoundTrip(t *testing.T) {
	m := New(10, nil, testTTLs())
	ctx := context.Background()
	rec := scanmodel.ReachabilityRecord{Domain: "example.com", State: scanmodel.StateOnline}
	if err := m.PutReach(ctx, "example.com", rec); err != nil {
		t.Fatalf("PutReach() error = %v", err)
	}
	got, ok := m.GetReach(ctx, "example.com")
	if !ok {
		t.Fatal("GetReach() miss, want hit")
	}
	if got.Value.State != scanmodel.StateOnline {
		t.Errorf("State = %v, want ONLINE", got.Value.State)
	}
}
