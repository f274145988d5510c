package caching

import (
	"context"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// DefaultAnalysisTTL is how long an analysis stays cached
const DefaultAnalysisTTL = time.Hour

// CachedAnalyzer memoizes a core.Analyzer keyed on the email content identity
type CachedAnalyzer struct {
	next    core.Analyzer
	analyze func(context.Context, *core.Email) (*core.AnalysisResult, error)
}

// NewCachedAnalyzer wraps next so repeated analyses of the same email hit the cache
func NewCachedAnalyzer(cache *Cache, next core.Analyzer, ttl time.Duration) *CachedAnalyzer {
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}
	return &CachedAnalyzer{
		next:    next,
		analyze: Wrap(cache, core.OperationAnalyze, ttl, emailKeyArgs, next.Analyze),
	}
}

// Analyze implements core.Analyzer
func (a *CachedAnalyzer) Analyze(ctx context.Context, email *core.Email) (*core.AnalysisResult, error) {
	// nothing worth caching; also keeps the nil check in one place
	if email == nil || email.Body == "" {
		return a.next.Analyze(ctx, email)
	}
	return a.analyze(ctx, email)
}

func emailKeyArgs(email *core.Email) []any {
	return []any{email.ID, email.Subject, email.Body}
}
