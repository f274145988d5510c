package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-triage/internal/adapters/ner"
	"github.com/mikey/llm-mail-triage/internal/adapters/sentiment"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// CapabilityFactory creates the non-completion analysis backends
type CapabilityFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCapabilityFactory creates a new capability factory
func NewCapabilityFactory(cfg *config.Config, logger *zap.Logger) *CapabilityFactory {
	return &CapabilityFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates the configured sentiment classifier. The llm
// provider classifies with completer.
func (f *CapabilityFactory) CreateClassifier(completer core.Completer) (core.SentimentClassifier, error) {
	sentimentCfg := f.cfg.GetSentiment()

	switch sentimentCfg.Provider {
	case "http":
		if sentimentCfg.Endpoint == "" {
			return nil, fmt.Errorf("sentiment endpoint is required")
		}
		return sentiment.NewHTTPClassifier(sentimentCfg.Endpoint, sentimentCfg.APIKey, sentimentCfg.Timeout, f.logger), nil
	case "llm":
		return sentiment.NewLLMClassifier(completer, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported sentiment provider: %s", sentimentCfg.Provider)
	}
}

// CreateRecognizer creates the configured entity recognizer
func (f *CapabilityFactory) CreateRecognizer() (core.EntityRecognizer, error) {
	provider := f.cfg.GetNER().Provider
	switch provider {
	case "prose":
		return ner.NewProseRecognizer(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported NER provider: %s", provider)
	}
}

// CreateAnalysisService assembles the analysis pipeline
func (f *CapabilityFactory) CreateAnalysisService(
	completer core.Completer,
	classifier core.SentimentClassifier,
	recognizer core.EntityRecognizer,
) *core.AnalysisService {
	analysisCfg := f.cfg.GetAnalysis()
	return core.NewAnalysisService(completer, classifier, recognizer, f.logger, core.AnalysisOptions{
		Parallel:       analysisCfg.Parallel,
		StepTimeout:    analysisCfg.StepTimeout,
		MapConcurrency: analysisCfg.MapConcurrency,
	})
}
