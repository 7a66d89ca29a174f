package orchestrator

import (
	"context"
	"testing"

	"github.com/fathomsec/urlscan-engine/internal/categories"
	"github.com/fathomsec/urlscan-engine/internal/config"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

type fixedAnalyzer struct {
	id        string
	maxWeight float64
	score     float64
}

func (a fixedAnalyzer) ID() string        { return a.id }
func (a fixedAnalyzer) Name() string      { return a.id }
func (a fixedAnalyzer) MaxWeight() float64 { return a.maxWeight }
func (a fixedAnalyzer) ShouldRun(scanmodel.ReachabilityState, scanmodel.PipelineType) bool {
	return true
}
func (a fixedAnalyzer) Run(context.Context, scanmodel.ScanContext) []scanmodel.Finding {
	return []scanmodel.Finding{{CheckID: a.id, Severity: scanmodel.SeverityHigh, Score: a.score}}
}

func testConfig() *config.Config {
	return &config.Config{
		RiskThresholds: config.RiskThresholds{Critical: 80, High: 60, Medium: 30, Low: 15},
	}
}

func TestScanRejectsInvalidURL(t *testing.T) {
	o := New(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	if _, err := o.Scan(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty url")
	}
}

func TestScanWithNoOptionalStagesStillProducesAResult(t *testing.T) {
	o := New(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	result, err := o.Scan(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.ScanID == "" {
		t.Error("expected a non-empty scanId")
	}
	if result.RiskLevel != scanmodel.RiskSafe {
		t.Errorf("RiskLevel = %v, want safe when nothing found any signal", result.RiskLevel)
	}
	if result.FinalScore != 0 {
		t.Errorf("FinalScore = %v, want 0 with no categories/TI wired", result.FinalScore)
	}
}

func TestScanAggregatesCategoryFindingsIntoFinalScore(t *testing.T) {
	exec := categories.New([]categories.Analyzer{
		fixedAnalyzer{id: "c1", maxWeight: 50, score: 40},
		fixedAnalyzer{id: "c2", maxWeight: 50, score: 10},
	})
	o := New(testConfig(), nil, nil, nil, nil, nil, exec, nil, nil, nil, nil, nil)

	result, err := o.Scan(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.BaseScore != 50 {
		t.Errorf("BaseScore = %v, want 50 (40+10)", result.BaseScore)
	}
	if result.ActiveMaxScore != 100 {
		t.Errorf("ActiveMaxScore = %v, want 100", result.ActiveMaxScore)
	}
	// No AI/FP wired -> multipliers default to 1.0, so finalScore == baseScore.
	if result.FinalScore != 50 {
		t.Errorf("FinalScore = %v, want 50 with identity multipliers", result.FinalScore)
	}
	if result.RiskLevel != scanmodel.RiskMedium {
		t.Errorf("RiskLevel = %v, want medium at 50%% of active max (between medium=30 and high=60 thresholds)", result.RiskLevel)
	}
}

func TestSelectPipelineMapsEveryReachabilityState(t *testing.T) {
	cases := map[scanmodel.ReachabilityState]scanmodel.PipelineType{
		scanmodel.StateOnline:       scanmodel.PipelineFull,
		scanmodel.StateOffline:      scanmodel.PipelinePassive,
		scanmodel.StateParked:       scanmodel.PipelineParked,
		scanmodel.StateWAFChallenge: scanmodel.PipelineWAF,
	}
	for state, want := range cases {
		if got := selectPipeline(state); got != want {
			t.Errorf("selectPipeline(%v) = %v, want %v", state, got, want)
		}
	}
}

func TestComponentErrorsOnlyCollectsErrorVerdicts(t *testing.T) {
	sources := []scanmodel.TISourceResult{
		{Source: "a", Verdict: scanmodel.TIVerdictSafe},
		{Source: "b", Verdict: scanmodel.TIVerdictError, Details: "timeout"},
	}
	errs := componentErrors("ti-layer", sources)
	if len(errs) != 1 || errs[0].Name != "b" || errs[0].Error != "timeout" {
		t.Errorf("componentErrors = %+v, want exactly one entry for source b", errs)
	}
}
