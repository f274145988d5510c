package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

const frontendCLI = "cli"

// CliFilter analyzes a single email and prints a report
type CliFilter struct {
	analyzer   core.Analyzer
	logger     *zap.Logger
	out        io.Writer
	verbose    bool
	jsonOutput bool
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(analyzer core.Analyzer, logger *zap.Logger, out io.Writer, verbose, jsonOutput bool) *CliFilter {
	return &CliFilter{
		analyzer:   analyzer,
		logger:     logger,
		out:        out,
		verbose:    verbose,
		jsonOutput: jsonOutput,
	}
}

// ProcessEmail analyzes an email and writes the report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.AnalysisResult, error) {
	f.logger.Debug("Processing email",
		zap.String("sender", email.From),
		zap.String("message_id", email.ID))

	start := time.Now()
	result, err := f.analyzer.Analyze(ctx, email)
	if err != nil {
		metrics.IncrementEmailProcessed(frontendCLI, "error")
		return nil, fmt.Errorf("failed to analyze email: %w", err)
	}
	metrics.IncrementEmailProcessed(frontendCLI, "analyzed")

	if f.jsonOutput {
		return result, f.writeJSON(email, result)
	}
	f.writeReport(email, result, time.Since(start))
	return result, nil
}

func (f *CliFilter) writeJSON(email *core.Email, result *core.AnalysisResult) error {
	out, err := json.MarshalIndent(map[string]any{
		"email":    email,
		"analysis": result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(f.out, string(out))
	return err
}

func (f *CliFilter) writeReport(email *core.Email, result *core.AnalysisResult, elapsed time.Duration) {
	w := f.out
	fmt.Fprintf(w, "=== Email ===\n")
	fmt.Fprintf(w, "From: %s\n", email.From)
	fmt.Fprintf(w, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(w, "Subject: %s\n", email.Subject)
	fmt.Fprintf(w, "Body length: %d characters\n", utils.CharLen(email.Body))
	if f.verbose {
		fmt.Fprintf(w, "\nBody preview:\n%s\n", utils.Head(email.Body, 500))
	}

	fmt.Fprintf(w, "\n=== Analysis ===\n")
	fmt.Fprintf(w, "Summary: %s\n", result.Summary)
	if result.SentimentScore != nil {
		fmt.Fprintf(w, "Sentiment: %s (%.2f)\n", result.Sentiment, *result.SentimentScore)
	} else {
		fmt.Fprintf(w, "Sentiment: %s\n", result.Sentiment)
	}
	fmt.Fprintf(w, "Importance: %.2f\n", result.ImportanceScore)
	fmt.Fprintf(w, "Categories: %s\n", strings.Join(result.Categories, ", "))
	fmt.Fprintf(w, "Topics: %s\n", strings.Join(result.Topics, ", "))

	fmt.Fprintf(w, "Action items:\n")
	for _, item := range result.ActionItems {
		fmt.Fprintf(w, "  - %s\n", item)
	}

	fmt.Fprintf(w, "Entities:\n")
	for _, e := range result.Entities {
		fmt.Fprintf(w, "  - %s [%s]\n", e.Text, e.Label)
	}

	fmt.Fprintf(w, "\nProcessing time: %v\n", elapsed.Round(time.Millisecond))
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
