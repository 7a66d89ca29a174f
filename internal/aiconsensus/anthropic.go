package aiconsensus

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// AnthropicModel calls a Claude model via the Messages API.
type AnthropicModel struct {
	name    string
	weight  float64
	modelID string
	client  anthropic.Client
}

// NewAnthropicModel builds a provider bound to apiKey and modelID
// (e.g. anthropic.ModelClaude3_5SonnetLatest).
func NewAnthropicModel(name string, weight float64, modelID, apiKey string) *AnthropicModel {
	return &AnthropicModel{
		name: name, weight: weight, modelID: modelID,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (a *AnthropicModel) Name() string    { return a.name }
func (a *AnthropicModel) Weight() float64 { return a.weight }

func (a *AnthropicModel) Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error) {
	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelID),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return scanmodel.AIModelVote{}, scanerr.Model("anthropic request failed", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return parseVote(a.name, text, time.Since(start)), nil
}
