package aiconsensus

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// bedrockRequest is the Anthropic-on-Bedrock request body shape
// (anthropic_version + messages), the most common Bedrock text model
// invocation format.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockModel invokes a Bedrock-hosted model via InvokeModel.
type BedrockModel struct {
	name    string
	weight  float64
	modelID string
	client  *bedrockruntime.Client
}

// NewBedrockModel builds a provider over an already-configured Bedrock
// runtime client (built from aws-sdk-go-v2/config.LoadDefaultConfig by
// the caller, so region/credential resolution stays out of this
// package's concerns).
func NewBedrockModel(name string, weight float64, modelID string, client *bedrockruntime.Client) *BedrockModel {
	return &BedrockModel{name: name, weight: weight, modelID: modelID, client: client}
}

func (b *BedrockModel) Name() string    { return b.name }
func (b *BedrockModel) Weight() float64 { return b.weight }

func (b *BedrockModel) Vote(ctx context.Context, prompt string) (scanmodel.AIModelVote, error) {
	start := time.Now()

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        512,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return scanmodel.AIModelVote{}, scanerr.Model("bedrock request encode failed", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return scanmodel.AIModelVote{}, scanerr.Model("bedrock invoke failed", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return scanmodel.AIModelVote{}, scanerr.Model("bedrock response decode failed", err)
	}

	var text bytes.Buffer
	for _, c := range resp.Content {
		text.WriteString(c.Text)
	}
	return parseVote(b.name, text.String(), time.Since(start)), nil
}
