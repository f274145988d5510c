package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"
)

const (
	// SummaryFallback is reported when no summary could be produced
	SummaryFallback = "Could not generate summary."

	// emails shorter than this are summarized with a single call
	directSummaryLimit = 4000

	summaryChunkSize    = 1000
	summaryChunkOverlap = 200

	// some backends treat an explicit zero as unset
	mapReduceTemperature = 0.1

	summarySystemPrompt = "You are an email summarization assistant. Provide a concise summary of the email in 1-2 sentences."
	chunkSummaryPrompt  = "Write a concise summary of the following:\n\n\n\"%s\"\n\n\nCONCISE SUMMARY:"
)

func (s *AnalysisService) summarize(ctx context.Context, subject, body string) (summary string) {
	defer s.recoverStep("summary", func() { summary = SummaryFallback })

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	var err error
	if utils.CharLen(body) < directSummaryLimit {
		summary, err = s.complete(ctx, CompletionRequest{
			System:      summarySystemPrompt,
			Prompt:      fmt.Sprintf("Subject: %s\n\nEmail: %s", subject, body),
			MaxTokens:   100,
			Temperature: 0.3,
		})
	} else {
		summary, err = s.mapReduceSummary(ctx, body)
	}

	if err != nil {
		s.stepFailed("summary", err)
		return SummaryFallback
	}
	return summary
}

// mapReduceSummary summarizes each overlapping chunk of body and then
// summarizes the joined chunk summaries.
func (s *AnalysisService) mapReduceSummary(ctx context.Context, body string) (string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(summaryChunkSize),
		textsplitter.WithChunkOverlap(summaryChunkOverlap),
	)
	chunks, err := splitter.SplitText(body)
	if err != nil {
		return "", fmt.Errorf("failed to split email body: %w", err)
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("email body produced no chunks")
	}

	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MapConcurrency)
	for i, chunk := range chunks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("chunk %d: panic: %v", i, r)
				}
			}()
			partial, err := s.complete(gctx, CompletionRequest{
				Prompt:      fmt.Sprintf(chunkSummaryPrompt, chunk),
				MaxTokens:   256,
				Temperature: mapReduceTemperature,
			})
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return s.complete(ctx, CompletionRequest{
		System:      summarySystemPrompt,
		Prompt:      fmt.Sprintf(chunkSummaryPrompt, strings.Join(partials, "\n")),
		MaxTokens:   256,
		Temperature: mapReduceTemperature,
	})
}
