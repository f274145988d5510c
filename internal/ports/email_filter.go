package ports

import (
	"context"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// EmailFilter is a frontend that feeds email into the analysis pipeline
type EmailFilter interface {
	// ProcessEmail analyzes an email and delivers the result the way the frontend does
	ProcessEmail(ctx context.Context, email *core.Email) (*core.AnalysisResult, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
