package scoring

import (
	"testing"

	"github.com/fathomsec/urlscan-engine/internal/config"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func testThresholds() config.RiskThresholds {
	return config.RiskThresholds{Critical: 80, High: 60, Medium: 30, Low: 15}
}

func TestActiveMaxScoreExcludesSkippedCategories(t *testing.T) {
	categories := []scanmodel.CategoryResult{
		{MaxWeight: 20},
		{MaxWeight: 30, Metadata: scanmodel.CategoryMetadata{Skipped: true}},
	}
	got := ActiveMaxScore(categories, 15)
	if got != 35 {
		t.Errorf("ActiveMaxScore = %v, want 35 (20 + 15 TI, skipped category excluded)", got)
	}
}

func TestFinalScoreClampedToActiveMax(t *testing.T) {
	got := FinalScore(90, 10, 1.3, 1.0, 100)
	if got != 100 {
		t.Errorf("FinalScore = %v, want clamped to 100", got)
	}
}

func TestFinalScoreClampedToZero(t *testing.T) {
	got := FinalScore(10, 0, 0.7, 0.1, 100)
	if got < 0 {
		t.Errorf("FinalScore = %v, want >= 0", got)
	}
}

func TestFinalScoreAppliesAIAndFPMultipliers(t *testing.T) {
	got := FinalScore(50, 10, 1.0, 0.5, 1000)
	if got != 30 {
		t.Errorf("FinalScore = %v, want 30 (60 * 0.5)", got)
	}
}

func TestRiskPercentageZeroActiveMaxIsZero(t *testing.T) {
	got := RiskPercentage(0, 0)
	if got != 0 {
		t.Errorf("RiskPercentage = %v, want 0 when activeMaxScore is 0", got)
	}
}

func TestBandMonotoneNonDecreasing(t *testing.T) {
	thresholds := testThresholds()
	percentages := []float64{0, 10, 15, 20, 30, 45, 60, 75, 80, 95}
	order := map[scanmodel.RiskLevel]int{
		scanmodel.RiskSafe: 0, scanmodel.RiskLow: 1, scanmodel.RiskMedium: 2,
		scanmodel.RiskHigh: 3, scanmodel.RiskCritical: 4,
	}
	prev := -1
	for _, p := range percentages {
		band := Band(p, thresholds)
		rank := order[band]
		if rank < prev {
			t.Errorf("Band(%v) = %v (rank %d) is lower than a preceding lower percentage's band (rank %d)", p, band, rank, prev)
		}
		prev = rank
	}
}

func TestBandBoundaries(t *testing.T) {
	thresholds := testThresholds()
	cases := []struct {
		pct  float64
		want scanmodel.RiskLevel
	}{
		{0, scanmodel.RiskSafe},
		{14.9, scanmodel.RiskSafe},
		{15, scanmodel.RiskLow},
		{30, scanmodel.RiskMedium},
		{60, scanmodel.RiskHigh},
		{80, scanmodel.RiskCritical},
		{100, scanmodel.RiskCritical},
	}
	for _, c := range cases {
		if got := Band(c.pct, thresholds); got != c.want {
			t.Errorf("Band(%v) = %v, want %v", c.pct, got, c.want)
		}
	}
}
