package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// InvokeModelAPI is the part of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the Completer interface using Amazon Bedrock
type BedrockClient struct {
	client        InvokeModelAPI
	modelID       string
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client InvokeModelAPI,
	modelID string,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Complete invokes the model with the payload format of its family
func (c *BedrockClient) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	req.Prompt = c.textProcessor.ProcessText(req.Prompt, c.maxBodySize)

	payload, err := buildPayload(c.modelID, req, c.topP)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := parseResponse(c.modelID, resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Bedrock completion",
		zap.String("model", c.modelID),
		zap.Int("response_bytes", len(resp.Body)))

	return text, nil
}

// buildPayload renders req in the request format of the model family
func buildPayload(modelID string, req core.CompletionRequest, topP float32) ([]byte, error) {
	switch {
	case isAnthropicModel(modelID):
		payload := map[string]any{
			"anthropic_version": anthropicVersion,
			"max_tokens":        req.MaxTokens,
			"temperature":       req.Temperature,
			"top_p":             topP,
			"messages": []map[string]any{{
				"role":    "user",
				"content": []map[string]string{{"type": "text", "text": req.Prompt}},
			}},
		}
		if req.System != "" {
			payload["system"] = req.System
		}
		return json.Marshal(payload)
	case isAmazonTitanModel(modelID):
		return json.Marshal(map[string]any{
			"inputText": joinPrompt(req),
			"textGenerationConfig": map[string]any{
				"maxTokenCount": req.MaxTokens,
				"temperature":   req.Temperature,
				"topP":          topP,
			},
		})
	case isMetaModel(modelID):
		return json.Marshal(map[string]any{
			"prompt":      joinPrompt(req),
			"max_gen_len": req.MaxTokens,
			"temperature": req.Temperature,
			"top_p":       topP,
		})
	default:
		return json.Marshal(map[string]any{
			"prompt":      joinPrompt(req),
			"max_tokens":  req.MaxTokens,
			"temperature": req.Temperature,
			"top_p":       topP,
		})
	}
}

// parseResponse extracts the generated text from a model family response
func parseResponse(modelID string, body []byte) (string, error) {
	switch {
	case isAnthropicModel(modelID):
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var sb strings.Builder
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("claude response has no text: %w", core.ErrEmptyCompletion)
		}
		return sb.String(), nil
	case isAmazonTitanModel(modelID):
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model: %w", core.ErrEmptyCompletion)
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Generation string `json:"generation"`
			Output     string `json:"output"`
			Text       string `json:"text"`
			Response   string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, candidate := range []string{genericResp.Generation, genericResp.Output, genericResp.Text, genericResp.Response} {
			if candidate != "" {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("bedrock response has no known text field: %w", core.ErrEmptyCompletion)
	}
}

// joinPrompt folds the system instruction into the prompt for families
// without a separate system field
func joinPrompt(req core.CompletionRequest) string {
	if req.System == "" {
		return req.Prompt
	}
	return req.System + "\n\n" + req.Prompt
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func isAnthropicModel(modelID string) bool {
	return strings.Contains(modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func isAmazonTitanModel(modelID string) bool {
	return strings.Contains(modelID, "amazon.titan")
}

func isMetaModel(modelID string) bool {
	return strings.Contains(modelID, "meta.llama")
}
