package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

const llmSentimentPrompt = `You are a sentiment classifier for emails. Classify the overall sentiment of the text as POSITIVE, NEGATIVE or NEUTRAL.

Respond ONLY with JSON in this format:
{"label": "POSITIVE", "score": 0.93}

The score is your confidence between 0 and 1.`

// LLMClassifier classifies sentiment with a completion backend, for
// deployments without a dedicated inference server
type LLMClassifier struct {
	completer core.Completer
	logger    *zap.Logger
}

// NewLLMClassifier creates a classifier backed by completer
func NewLLMClassifier(completer core.Completer, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		logger:    logger,
	}
}

// Classify asks the model for a label and confidence
func (c *LLMClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	content, err := c.completer.Complete(ctx, core.CompletionRequest{
		System:      llmSentimentPrompt,
		Prompt:      text,
		MaxTokens:   30,
		Temperature: 0.1,
	})
	if err != nil {
		return "", 0, err
	}

	// Models sometimes wrap the JSON in prose or code fences
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", 0, fmt.Errorf("no JSON object in sentiment reply %q", content)
	}

	var p Prediction
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return "", 0, fmt.Errorf("failed to decode sentiment reply: %w", err)
	}
	if p.Label == "" {
		return "", 0, fmt.Errorf("sentiment reply has no label")
	}

	return p.Label, p.Score, nil
}
