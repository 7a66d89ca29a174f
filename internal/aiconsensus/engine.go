package aiconsensus

import (
	"context"
	"sync"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Bounds clamps the AI multiplier, per spec §4.10 (default [0.7, 1.3],
// fallback 1.0 if every model fails).
type Bounds struct {
	Min, Max, Fallback float64
}

// Engine fans the consensus prompt out to every configured model and
// aggregates their votes.
type Engine struct {
	models []Model
	bounds Bounds
}

func New(models []Model, bounds Bounds) *Engine {
	return &Engine{models: models, bounds: bounds}
}

// Run calls every model concurrently and aggregates the surviving votes
// into a consensus result. Every model receives the same ctx; no
// per-model deadline is applied, so a model call is bounded only by
// ctx's own deadline.
func (e *Engine) Run(ctx context.Context, prompt Prompt) scanmodel.AIConsensusResult {
	start := time.Now()
	rendered := prompt.Render()

	votes := make([]scanmodel.AIModelVote, len(e.models))
	var wg sync.WaitGroup
	for i, m := range e.models {
		i, m := i, m
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					votes[i] = scanmodel.AIModelVote{Model: m.Name(), Verdict: scanmodel.AIVerdictUnknown, Err: "panic in model call"}
				}
			}()
			vote, err := m.Vote(ctx, rendered)
			if err != nil {
				votes[i] = scanmodel.AIModelVote{Model: m.Name(), Verdict: scanmodel.AIVerdictUnknown, Err: err.Error()}
				return
			}
			votes[i] = vote
		}()
	}
	wg.Wait()

	return e.aggregate(votes, e.weightByName(), time.Since(start))
}

func (e *Engine) weightByName() map[string]float64 {
	w := make(map[string]float64, len(e.models))
	for _, m := range e.models {
		w[m.Name()] = m.Weight()
	}
	return w
}

// aggregate implements spec §4.10's confidence-weighted vote: the
// consensus verdict is the argmax of sum(weight*confidence) per
// verdict; the final multiplier is the weighted mean of the suggested
// multipliers of models that agreed with the consensus, clamped to
// bounds; agreement rate is the fraction of (non-failed) models that
// agreed.
func (e *Engine) aggregate(votes []scanmodel.AIModelVote, weightByName map[string]float64, duration time.Duration) scanmodel.AIConsensusResult {
	survivors := make([]scanmodel.AIModelVote, 0, len(votes))
	for _, v := range votes {
		if v.Err == "" && v.Verdict != scanmodel.AIVerdictUnknown {
			survivors = append(survivors, v)
		}
	}

	if len(survivors) == 0 {
		return scanmodel.AIConsensusResult{
			Votes: votes, Consensus: scanmodel.AIVerdictUnknown,
			Multiplier: e.bounds.Fallback, AgreementRate: 0, UsedFallback: true, Duration: duration,
		}
	}

	scoreByVerdict := map[scanmodel.AIVerdict]float64{}
	for _, v := range survivors {
		scoreByVerdict[v.Verdict] += weightByName[v.Model] * v.Confidence
	}

	var consensus scanmodel.AIVerdict
	var best float64
	first := true
	for _, v := range verdictOrder {
		s, ok := scoreByVerdict[v]
		if !ok {
			continue
		}
		if first || s > best {
			consensus, best, first = v, s, false
		}
	}

	var multiplierSum, weightSum float64
	agreeing := 0
	for _, v := range survivors {
		if v.Verdict == consensus {
			agreeing++
			weight := weightByName[v.Model]
			if weight <= 0 {
				weight = 1
			}
			multiplierSum += weight * v.Multiplier
			weightSum += weight
		}
	}

	multiplier := e.bounds.Fallback
	if weightSum > 0 {
		multiplier = clamp(multiplierSum/weightSum, e.bounds.Min, e.bounds.Max)
	}

	return scanmodel.AIConsensusResult{
		Votes: votes, Consensus: consensus, Multiplier: multiplier,
		AgreementRate: float64(agreeing) / float64(len(survivors)),
		UsedFallback:  false, Duration: duration,
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
