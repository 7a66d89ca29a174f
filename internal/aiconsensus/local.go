package aiconsensus

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// LocalModel talks to any OpenAI-compatible chat-completion endpoint
// (LocalAI, vLLM, or a self-hosted model server) via langchaingo.
type LocalModel struct {
	name   string
	weight float64
	llm    *openai.LLM
}

// NewLocalModel builds a provider bound to endpoint/modelID. apiKey may
// be empty for servers that don't require auth.
func NewLocalModel(name string, weight float64, endpoint, modelID, apiKey string) (*LocalModel, error) {
	opts := []openai.Option{openai.WithModel(modelID)}
	if endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, scanerr.Model("local model client construction failed", err)
	}
	return &LocalModel{name: name, weight: weight, llm: llm}, nil
}

func (l *LocalModel) Name() string    { return l.name }
func (l *LocalModel) Weight() float64 { return l.weight }

func (l *LocalModel) Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error) {
	start := time.Now()
	reply, err := llms.GenerateFromSinglePrompt(ctx, l.llm, prompt)
	if err != nil {
		return scanmodel.AIModelVote{}, scanerr.Model("local model generation failed", err)
	}
	return parseVote(l.name, reply, time.Since(start)), nil
}
