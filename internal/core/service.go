package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OperationAnalyze identifies the orchestration in logs and cache keys
const OperationAnalyze = "analyze_email_content"

const (
	searchSystemPrompt = "You are an AI assistant that helps improve search queries for email search. " +
		"Expand this query with relevant keywords and synonyms to improve search results, but keep it concise."

	// errorLogLimit bounds error text written to the log
	errorLogLimit = 200
)

// AnalysisOptions tunes how the orchestrator runs its steps
type AnalysisOptions struct {
	// Parallel runs independent steps concurrently
	Parallel bool
	// StepTimeout bounds every backend call made by a single step. Zero disables it.
	StepTimeout time.Duration
	// MapConcurrency bounds concurrent chunk summaries for long emails
	MapConcurrency int
}

// AnalysisService turns email content into an AnalysisResult
type AnalysisService struct {
	completer  Completer
	classifier SentimentClassifier
	recognizer EntityRecognizer
	logger     *zap.Logger
	opts       AnalysisOptions
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	completer Completer,
	classifier SentimentClassifier,
	recognizer EntityRecognizer,
	logger *zap.Logger,
	opts AnalysisOptions,
) *AnalysisService {
	if opts.MapConcurrency <= 0 {
		opts.MapConcurrency = 4
	}
	return &AnalysisService{
		completer:  completer,
		classifier: classifier,
		recognizer: recognizer,
		logger:     logger,
		opts:       opts,
	}
}

// Analyze runs every sub-analysis over the email. Individual step failures
// degrade to that step's fallback; only a missing email is reported as an error.
func (s *AnalysisService) Analyze(ctx context.Context, email *Email) (*AnalysisResult, error) {
	if email == nil {
		return nil, ErrInvalidEmail
	}

	if email.Body == "" {
		s.logger.Debug("Email has no body, skipping analysis", zap.String("email_id", email.ID))
		return EmptyAnalysisResult(), nil
	}

	start := time.Now()
	result := &AnalysisResult{}
	var sentimentScore float64

	// each step owns distinct fields of result
	steps := []func(){
		func() { result.Summary = s.summarize(ctx, email.Subject, email.Body) },
		func() { result.Sentiment, sentimentScore = s.analyzeSentiment(ctx, email.Body) },
		func() {
			result.Entities = s.extractEntities(ctx, email.Body)
			result.ImportanceScore = s.scoreImportance(email.Subject, email.Body, result.Entities)
		},
		func() { result.Categories = s.categorize(ctx, email.Subject, email.Body) },
		func() { result.ActionItems = s.extractActionItems(ctx, email.Body) },
		func() { result.Topics = s.extractTopics(ctx, email.Body) },
	}

	if s.opts.Parallel {
		var g errgroup.Group
		for _, step := range steps {
			g.Go(func() error {
				step()
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, step := range steps {
			step()
		}
	}

	result.SentimentScore = &sentimentScore

	elapsed := time.Since(start)
	metrics.RecordAnalysisDuration(elapsed)
	s.logger.Info("Email analyzed",
		zap.String("email_id", email.ID),
		zap.String("sentiment", string(result.Sentiment)),
		zap.Float64("importance_score", result.ImportanceScore),
		zap.Strings("categories", result.Categories),
		zap.Int("entities", len(result.Entities)),
		zap.Duration("elapsed", elapsed))

	return result, nil
}

// EnhanceSearchQuery expands a mailbox search query with related keywords.
// The original query is returned whenever the backend cannot help.
func (s *AnalysisService) EnhanceSearchQuery(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	enhanced, err := s.complete(ctx, CompletionRequest{
		System:      searchSystemPrompt,
		Prompt:      fmt.Sprintf("Original query: %s", query),
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		s.logger.Error("Error enhancing search query",
			zap.String("query", query),
			zap.String("error", utils.Head(err.Error(), errorLogLimit)))
		return query
	}

	s.logger.Info("Enhanced search query", zap.String("original", query), zap.String("enhanced", enhanced))
	return enhanced
}

// complete issues one completion and rejects blank answers
func (s *AnalysisService) complete(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (s *AnalysisService) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StepTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.StepTimeout)
	}
	return context.WithCancel(ctx)
}

// stepFailed records a step that fell back to its default value
func (s *AnalysisService) stepFailed(step string, err error) {
	s.logger.Warn("Analysis step failed, using fallback",
		zap.String("operation", OperationAnalyze),
		zap.String("step", step),
		zap.String("error", utils.Head(err.Error(), errorLogLimit)))
	metrics.RecordAnalyzerFailure(step)
}

// recoverStep must be deferred directly. It turns a panic into a logged step
// failure and lets fallback set the step's named results.
func (s *AnalysisService) recoverStep(step string, fallback func()) {
	if r := recover(); r != nil {
		s.stepFailed(step, fmt.Errorf("panic: %v", r))
		fallback()
	}
}
