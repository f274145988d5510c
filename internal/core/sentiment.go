package core

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	sentimentInputLimit = 512
	sentimentFallback   = 0.5
)

var knownSentimentLabels = []string{"positive", "negative", "neutral"}

// NormalizeSentiment maps a raw classifier label onto the standard labels.
// A neutral call with a skewed confidence is pushed toward that polarity.
func NormalizeSentiment(raw string, score float64) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	case "neutral":
		switch {
		case score > 0.7:
			return SentimentPositive
		case score < 0.3:
			return SentimentNegative
		}
	}
	return SentimentNeutral
}

func (s *AnalysisService) analyzeSentiment(ctx context.Context, text string) (label Sentiment, score float64) {
	defer s.recoverStep("sentiment", func() { label, score = SentimentNeutral, sentimentFallback })

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	raw, score, err := s.classifier.Classify(ctx, utils.Head(text, sentimentInputLimit))
	if err == nil && (math.IsNaN(score) || score < 0 || score > 1) {
		err = fmt.Errorf("confidence %v out of range", score)
	}
	if err != nil {
		s.stepFailed("sentiment", err)
		return SentimentNeutral, sentimentFallback
	}

	if !lo.Contains(knownSentimentLabels, strings.ToLower(strings.TrimSpace(raw))) {
		s.logger.Warn("Unknown sentiment label from classifier, reporting neutral",
			zap.String("operation", OperationAnalyze),
			zap.String("step", "sentiment"),
			zap.String("label", raw),
			zap.Float64("score", score))
	}

	return NormalizeSentiment(raw, score), score
}
