package resultstore

import (
	"encoding/json"
	"testing"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// No live Postgres is exercised here (mirrors internal/tombstone's test
// approach); these tests cover the JSON round-trip the Save/Get pair
// relies on, since that's the only pure logic in this package.

func TestFinalScanResultJSONRoundTrip(t *testing.T) {
	original := scanmodel.FinalScanResult{
		ScanID:     "scan-1",
		URL:        scanmodel.URLComponents{Hash: "abc123", Canonical: "https://example.com/"},
		RiskLevel:  scanmodel.RiskHigh,
		FinalScore: 42.5,
	}

	payload, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded scanmodel.FinalScanResult
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.ScanID != original.ScanID || decoded.URL.Hash != original.URL.Hash ||
		decoded.RiskLevel != original.RiskLevel || decoded.FinalScore != original.FinalScore {
		t.Errorf("decoded = %+v, want round-trip of %+v", decoded, original)
	}
}
