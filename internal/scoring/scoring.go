// Package scoring implements the final scoring arithmetic and risk
// banding: pure, clamp-and-band functions in the same idiom as the
// teacher's heuristics.ScoreTransaction/classifySeverity pair, adapted
// from a transaction risk score to a URL threat score.
package scoring

import (
	"math"

	"github.com/fathomsec/urlscan-engine/internal/config"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// ActiveMaxScore sums the maxWeight of every non-skipped category plus
// the TI layer's max weight.
func ActiveMaxScore(categories []scanmodel.CategoryResult, tiMaxWeight float64) float64 {
	total := tiMaxWeight
	for _, c := range categories {
		if !c.Metadata.Skipped {
			total += c.MaxWeight
		}
	}
	return total
}

// FinalScore implements:
//
//	finalScore = clamp(round((baseCategoryScore + tiScore) * aiMultiplier) * fp.adjustmentMultiplier, 0, activeMaxScore)
func FinalScore(baseCategoryScore, tiScore, aiMultiplier, fpMultiplier, activeMaxScore float64) float64 {
	raw := math.Round((baseCategoryScore+tiScore)*aiMultiplier) * fpMultiplier
	return clamp(raw, 0, activeMaxScore)
}

// RiskPercentage is finalScore as a percent of activeMaxScore, 0 when
// activeMaxScore is 0 (fully degraded scan).
func RiskPercentage(finalScore, activeMaxScore float64) float64 {
	if activeMaxScore <= 0 {
		return 0
	}
	return finalScore / activeMaxScore * 100
}

// Band maps a risk percentage to a RiskLevel using the configured,
// strictly-decreasing thresholds. Pure and monotone non-decreasing in
// percentage, per the scoring contract.
func Band(percentage float64, thresholds config.RiskThresholds) scanmodel.RiskLevel {
	switch {
	case percentage >= thresholds.Critical:
		return scanmodel.RiskCritical
	case percentage >= thresholds.High:
		return scanmodel.RiskHigh
	case percentage >= thresholds.Medium:
		return scanmodel.RiskMedium
	case percentage >= thresholds.Low:
		return scanmodel.RiskLow
	default:
		return scanmodel.RiskSafe
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
