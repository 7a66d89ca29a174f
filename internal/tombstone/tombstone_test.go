package tombstone

import (
	"testing"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// qualifyingSources and meanConfidence mirror the selection half of
// CheckTIConsensus so the threshold/averaging arithmetic can be
// exercised without a live Postgres connection.
func qualifyingSources(tiResults []scanmodel.TISourceResult, minConfidence float64) []scanmodel.TISourceResult {
	var out []scanmodel.TISourceResult
	for _, r := range tiResults {
		if r.Verdict == scanmodel.TIVerdictMalicious && r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	return out
}

func meanConfidence(rs []scanmodel.TISourceResult) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Confidence
	}
	return sum / float64(len(rs))
}

func maliciousSource(name string, confidence float64) scanmodel.TISourceResult {
	return scanmodel.TISourceResult{Source: name, Verdict: scanmodel.TIVerdictMalicious, Confidence: confidence}
}

func TestQualifyingSourcesFiltersVerdictAndConfidence(t *testing.T) {
	results := []scanmodel.TISourceResult{
		maliciousSource("google_safe_browsing", 95),
		maliciousSource("virustotal", 60), // below threshold
		{Source: "phishtank", Verdict: scanmodel.TIVerdictSafe, Confidence: 99},
		maliciousSource("urlhaus", 80),
	}
	got := qualifyingSources(results, 80)
	if len(got) != 2 {
		t.Fatalf("qualifyingSources() len = %d, want 2", len(got))
	}
}

func TestConsensusThresholdRequiresMinSources(t *testing.T) {
	results := []scanmodel.TISourceResult{
		maliciousSource("a", 90),
		maliciousSource("b", 85),
		maliciousSource("c", 80),
	}
	got := qualifyingSources(results, 80)
	if len(got) >= 5 {
		t.Fatalf("expected fewer than 5 qualifying sources for a 3-source consensus, got %d", len(got))
	}
}

func TestMeanConfidenceOfQualifyingSources(t *testing.T) {
	results := []scanmodel.TISourceResult{
		maliciousSource("a", 100),
		maliciousSource("b", 80),
		maliciousSource("c", 90),
		maliciousSource("d", 80),
		maliciousSource("e", 80),
	}
	qualifying := qualifyingSources(results, 80)
	if len(qualifying) != 5 {
		t.Fatalf("qualifyingSources() len = %d, want 5", len(qualifying))
	}
	mean := meanConfidence(qualifying)
	want := (100.0 + 80 + 90 + 80 + 80) / 5
	if mean != want {
		t.Errorf("meanConfidence() = %v, want %v", mean, want)
	}
}

func TestMeanConfidenceEmptyIsZero(t *testing.T) {
	if got := meanConfidence(nil); got != 0 {
		t.Errorf("meanConfidence(nil) = %v, want 0", got)
	}
}
