package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRuntime struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newTestClient(t *testing.T, runtime InvokeModelAPI, modelID string) *BedrockClient {
	logger := zaptest.NewLogger(t)
	return NewBedrockClient(runtime, modelID, 0.9, 0, logger, utils.NewTextProcessor(logger))
}

func TestCompleteAnthropic(t *testing.T) {
	runtime := &fakeRuntime{body: `{"content":[{"type":"text","text":"Meeting, HR"}]}`}
	client := newTestClient(t, runtime, "anthropic.claude-3-haiku-20240307-v1:0")

	text, err := client.Complete(context.Background(), core.CompletionRequest{
		System:      "You are an email categorization assistant.",
		Prompt:      "Subject: Offsite",
		MaxTokens:   50,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Meeting, HR", text)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(runtime.input.Body, &payload))
	assert.Equal(t, anthropicVersion, payload["anthropic_version"])
	assert.Equal(t, "You are an email categorization assistant.", payload["system"])
	assert.EqualValues(t, 50, payload["max_tokens"])
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *runtime.input.ModelId)
}

func TestCompleteTitan(t *testing.T) {
	runtime := &fakeRuntime{body: `{"results":[{"outputText":"- Call Bob"}]}`}
	client := newTestClient(t, runtime, "amazon.titan-text-express-v1")

	text, err := client.Complete(context.Background(), core.CompletionRequest{System: "sys", Prompt: "body", MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, "- Call Bob", text)

	var payload struct {
		InputText string `json:"inputText"`
	}
	require.NoError(t, json.Unmarshal(runtime.input.Body, &payload))
	assert.Equal(t, "sys\n\nbody", payload.InputText)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		body    string
		want    string
		wantErr error
	}{
		{name: "llama", modelID: "meta.llama3-8b-instruct-v1:0", body: `{"generation":"Budget review"}`, want: "Budget review"},
		{name: "generic text", modelID: "mistral.mistral-7b", body: `{"text":"ok"}`, want: "ok"},
		{name: "claude empty", modelID: "anthropic.claude-v2", body: `{"content":[]}`, wantErr: core.ErrEmptyCompletion},
		{name: "titan empty", modelID: "amazon.titan-text-lite-v1", body: `{"results":[]}`, wantErr: core.ErrEmptyCompletion},
		{name: "unknown shape", modelID: "cohere.command", body: `{"foo":"bar"}`, wantErr: core.ErrEmptyCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse(tt.modelID, []byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteInvokeError(t *testing.T) {
	runtime := &fakeRuntime{err: errors.New("throttled")}
	client := newTestClient(t, runtime, "anthropic.claude-v2")

	_, err := client.Complete(context.Background(), core.CompletionRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "throttled")
}
