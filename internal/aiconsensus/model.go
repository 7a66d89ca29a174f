// Package aiconsensus implements the multi-provider AI consensus stage:
// Anthropic, AWS Bedrock, and a generic OpenAI/LocalAI-compatible
// provider behind one Model interface, fanned out concurrently and
// aggregated by confidence-weighted vote.
package aiconsensus

import (
	"context"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Model is one AI consensus provider. Implementations must honor ctx's
// deadline and never panic; the Engine isolates failures per model.
type Model interface {
	Name() string
	Weight() float64
	Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error)
}

// parseVote is the shared best-effort parser every provider uses to
// turn a free-text model reply into a structured vote, since none of
// the three backends here guarantee a typed/schema-constrained
// response the way a tool-call API would.
func parseVote(modelName, reply string, duration time.Duration) scanmodel.AIModelVote {
	verdict := extractVerdict(reply)
	confidence := extractNumber(reply, []string{"confidence"})
	multiplier := extractNumber(reply, []string{"multiplier", "suggested multiplier", "suggestedmultiplier"})
	if multiplier == 0 {
		multiplier = 1.0
	}
	return scanmodel.AIModelVote{
		Model: modelName, Verdict: verdict, Confidence: confidence,
		Multiplier: multiplier, Reasoning: reply, Duration: duration,
	}
}
