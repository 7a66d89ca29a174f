package aiconsensus

import (
	"context"
	"errors"
	"testing"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

type stubModel struct {
	name    string
	weight  float64
	vote    scanmodel.AIModelVote
	err     error
}

func (s *stubModel) Name() string    { return s.name }
func (s *stubModel) Weight() float64 { return s.weight }
func (s *stubModel) Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error) {
	if s.err != nil {
		return scanmodel.AIModelVote{}, s.err
	}
	v := s.vote
	v.Model = s.name
	return v, nil
}

func testBounds() Bounds { return Bounds{Min: 0.7, Max: 1.3, Fallback: 1.0} }

func TestAggregateConsensusIsArgmaxOfWeightedConfidence(t *testing.T) {
	e := New([]Model{
		&stubModel{name: "a", weight: 2, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictSafe, Confidence: 90, Multiplier: 1.0}},
		&stubModel{name: "b", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictPhishing, Confidence: 95, Multiplier: 1.2}},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if result.Consensus != scanmodel.AIVerdictSafe {
		t.Errorf("Consensus = %v, want safe (weight 2*90=180 beats phishing's 1*95=95)", result.Consensus)
	}
}

func TestAggregateMultiplierIsWeightedMeanOfAgreeingModels(t *testing.T) {
	e := New([]Model{
		&stubModel{name: "a", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictPhishing, Confidence: 80, Multiplier: 1.1}},
		&stubModel{name: "b", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictPhishing, Confidence: 80, Multiplier: 1.3}},
		&stubModel{name: "c", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictSafe, Confidence: 80, Multiplier: 0.8}},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if result.Consensus != scanmodel.AIVerdictPhishing {
		t.Fatalf("Consensus = %v, want phishing", result.Consensus)
	}
	want := (1.1 + 1.3) / 2
	if result.Multiplier != want {
		t.Errorf("Multiplier = %v, want %v (mean of only the two agreeing models, excluding the safe dissenter)", result.Multiplier, want)
	}
}

func TestAggregateClampsMultiplierToBounds(t *testing.T) {
	e := New([]Model{
		&stubModel{name: "a", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictMalware, Confidence: 99, Multiplier: 5.0}},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if result.Multiplier != 1.3 {
		t.Errorf("Multiplier = %v, want clamped to 1.3", result.Multiplier)
	}
}

func TestAggregateAllModelsFailUsesFallback(t *testing.T) {
	e := New([]Model{
		&stubModel{name: "a", weight: 1, err: errors.New("timeout")},
		&stubModel{name: "b", weight: 1, err: errors.New("rate limited")},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if !result.UsedFallback {
		t.Error("expected UsedFallback=true when every model fails")
	}
	if result.Multiplier != 1.0 {
		t.Errorf("Multiplier = %v, want fallback 1.0", result.Multiplier)
	}
	if result.Consensus != scanmodel.AIVerdictUnknown {
		t.Errorf("Consensus = %v, want unknown", result.Consensus)
	}
}

func TestAggreementRateExcludesFailedModels(t *testing.T) {
	e := New([]Model{
		&stubModel{name: "a", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictSafe, Confidence: 80, Multiplier: 1.0}},
		&stubModel{name: "b", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictSafe, Confidence: 80, Multiplier: 1.0}},
		&stubModel{name: "c", weight: 1, err: errors.New("down")},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if result.AgreementRate != 1.0 {
		t.Errorf("AgreementRate = %v, want 1.0 (both surviving models agreed)", result.AgreementRate)
	}
	if len(result.Votes) != 3 {
		t.Errorf("Votes length = %d, want 3 (every model's outcome recorded, including the failure)", len(result.Votes))
	}
}

func TestIsolatesPanickingModel(t *testing.T) {
	e := New([]Model{
		&panicModel{name: "broken"},
		&stubModel{name: "ok", weight: 1, vote: scanmodel.AIModelVote{Verdict: scanmodel.AIVerdictSafe, Confidence: 90, Multiplier: 1.0}},
	}, testBounds())

	result := e.Run(context.Background(), Prompt{})
	if result.Consensus != scanmodel.AIVerdictSafe {
		t.Errorf("Consensus = %v, want safe (the panicking model must not break aggregation)", result.Consensus)
	}
}

type panicModel struct{ name string }

func (p *panicModel) Name() string    { return p.name }
func (p *panicModel) Weight() float64 { return 1 }
func (p *panicModel) Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error) {
	panic("boom")
}
