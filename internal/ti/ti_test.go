package ti

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fathomsec/urlscan-engine/internal/breaker"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func testBreakers() *breaker.Manager {
	return breaker.NewManager(gobreaker.Settings{
		MaxRequests: 2,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 },
	})
}

func source(name string, tier scanmodel.TISourceTier, weight float64, verdict scanmodel.TIVerdict, confidence float64) Source {
	return Source{
		Name: name, Tier: tier, Weight: weight, Timeout: time.Second,
		Query: func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
			return scanmodel.TISourceResult{Source: name, Verdict: verdict, Confidence: confidence}, nil
		},
	}
}

func TestRunAggregatesAllSources(t *testing.T) {
	layer := New([]Source{
		source("gsb", scanmodel.TierTrusted, 8, scanmodel.TIVerdictMalicious, 90),
		source("vt", scanmodel.TierTrusted, 8, scanmodel.TIVerdictSafe, 10),
	}, testBreakers(), 55)

	result := layer.Run(context.Background(), "https://example.com")
	if len(result.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(result.Sources))
	}
	if result.VerdictCounts[scanmodel.TIVerdictMalicious] != 1 {
		t.Errorf("malicious count = %d, want 1", result.VerdictCounts[scanmodel.TIVerdictMalicious])
	}
}

func TestScoreWeightedByConfidence(t *testing.T) {
	layer := New([]Source{
		source("gsb", scanmodel.TierTrusted, 8, scanmodel.TIVerdictMalicious, 100),
	}, testBreakers(), 55)
	result := layer.Run(context.Background(), "https://example.com")
	if result.Score != 8 {
		t.Errorf("Score = %v, want 8 (full weight at 100%% confidence)", result.Score)
	}
}

func TestSuspiciousContributesHalfWeight(t *testing.T) {
	layer := New([]Source{
		source("otx", scanmodel.TierStandard, 5, scanmodel.TIVerdictSuspicious, 100),
	}, testBreakers(), 55)
	result := layer.Run(context.Background(), "https://example.com")
	if result.Score != 2.5 {
		t.Errorf("Score = %v, want 2.5 (half weight at full confidence)", result.Score)
	}
}

func TestScoreClampedToMaxWeight(t *testing.T) {
	layer := New([]Source{
		source("a", scanmodel.TierTrusted, 40, scanmodel.TIVerdictMalicious, 100),
		source("b", scanmodel.TierTrusted, 40, scanmodel.TIVerdictMalicious, 100),
	}, testBreakers(), 55)
	result := layer.Run(context.Background(), "https://example.com")
	if result.Score != 55 {
		t.Errorf("Score = %v, want clamped to maxWeight 55", result.Score)
	}
}

func TestDualTier1FlagRequiresTwoTrustedMalicious(t *testing.T) {
	single := New([]Source{
		source("gsb", scanmodel.TierTrusted, 8, scanmodel.TIVerdictMalicious, 90),
		source("abuseipdb", scanmodel.TierStandard, 5, scanmodel.TIVerdictMalicious, 90),
	}, testBreakers(), 55)
	if got := single.Run(context.Background(), "https://example.com"); got.DualTier1Flag {
		t.Error("DualTier1Flag = true, want false with only one tier-1 malicious source")
	}

	dual := New([]Source{
		source("gsb", scanmodel.TierTrusted, 8, scanmodel.TIVerdictMalicious, 90),
		source("virustotal", scanmodel.TierTrusted, 8, scanmodel.TIVerdictMalicious, 90),
	}, testBreakers(), 55)
	result := dual.Run(context.Background(), "https://example.com")
	if !result.DualTier1Flag {
		t.Error("DualTier1Flag = false, want true with two tier-1 malicious sources")
	}
	if len(result.DualTier1Names) != 2 {
		t.Errorf("len(DualTier1Names) = %d, want 2", len(result.DualTier1Names))
	}
}
