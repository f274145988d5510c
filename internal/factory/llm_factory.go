package factory

import (
	"errors"
	"fmt"
	"io"

	"github.com/mikey/llm-mail-triage/internal/adapters/bedrock"
	"github.com/mikey/llm-mail-triage/internal/adapters/gemini"
	"github.com/mikey/llm-mail-triage/internal/adapters/openai"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/resilience"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates completion backends
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	closers       []io.Closer
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateCompleter creates the configured completion backend, guarded by a
// circuit breaker when enabled
func (f *LLMFactory) CreateCompleter() (core.Completer, error) {
	provider := f.cfg.GetLLM().Provider

	var completer core.Completer
	switch provider {
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		completer = client
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, client)
		completer = client
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		completer = client
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	f.logger.Info("Created completion backend", zap.String("provider", provider))

	breakerCfg := f.cfg.GetBreaker()
	if !breakerCfg.Enabled {
		return completer, nil
	}
	return resilience.NewBreakerCompleter(completer, provider, resilience.BreakerConfig{
		MaxRequests:      breakerCfg.MaxRequests,
		Interval:         breakerCfg.Interval,
		Timeout:          breakerCfg.Timeout,
		FailureThreshold: breakerCfg.FailureThreshold,
	}, f.logger), nil
}

// Close releases clients that hold connections
func (f *LLMFactory) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}
