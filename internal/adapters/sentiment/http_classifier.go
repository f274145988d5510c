package sentiment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of an inference response is read
const maxResponseBytes = 1 << 20

// Prediction is one label/score pair of a text-classification response
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HTTPClassifier calls a text-classification inference server speaking the
// Hugging Face wire format
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPClassifier creates a classifier posting to endpoint
func NewHTTPClassifier(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Classify returns the highest scoring label for text
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build classification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read classification response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("classification server returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	top, err := topPrediction(payload)
	if err != nil {
		return "", 0, err
	}

	c.logger.Debug("Sentiment classified",
		zap.String("label", top.Label),
		zap.Float64("score", top.Score))

	return top.Label, top.Score, nil
}

// topPrediction accepts both the batched [[…]] and the flat […] response shapes
func topPrediction(payload []byte) (Prediction, error) {
	var predictions []Prediction
	var batched [][]Prediction
	if err := json.Unmarshal(payload, &batched); err == nil {
		if len(batched) > 0 {
			predictions = batched[0]
		}
	} else if err := json.Unmarshal(payload, &predictions); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode classification response: %w", err)
	}

	if len(predictions) == 0 {
		return Prediction{}, fmt.Errorf("classification response has no predictions")
	}

	top := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > top.Score {
			top = p
		}
	}
	return top, nil
}
