package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/caching"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/ports"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// BuildContainer creates and configures the dependency injection container
// for the triage server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(config.New); err != nil {
		return nil, err
	}
	if err := provideCommon(container, logging.InitLogger); err != nil {
		return nil, err
	}

	// Register frontends
	if err := container.Provide(func(
		f *factory.FilterFactory,
		analyzer core.Analyzer,
		service *core.AnalysisService,
		cache *caching.Cache,
	) []ports.EmailFilter {
		return f.CreateEmailFilters(analyzer, service, cache)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers everything between configuration and the frontends
func provideCommon(container *dig.Container, newLogger any) error {
	providers := []any{
		newLogger,
		utils.NewTextProcessor,
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewCapabilityFactory,
		factory.NewFilterFactory,

		func(f *factory.LLMFactory) (core.Completer, error) {
			return f.CreateCompleter()
		},
		func(f *factory.CapabilityFactory, completer core.Completer) (core.SentimentClassifier, error) {
			return f.CreateClassifier(completer)
		},
		func(f *factory.CapabilityFactory) (core.EntityRecognizer, error) {
			return f.CreateRecognizer()
		},
		func(
			f *factory.CapabilityFactory,
			completer core.Completer,
			classifier core.SentimentClassifier,
			recognizer core.EntityRecognizer,
		) *core.AnalysisService {
			return f.CreateAnalysisService(completer, classifier, recognizer)
		},
		func(f *factory.CacheFactory) *caching.Cache {
			return f.CreateCache()
		},
		// Analyzer is the cached pipeline every frontend uses
		func(cfg *config.Config, cache *caching.Cache, service *core.AnalysisService, logger *zap.Logger) core.Analyzer {
			ttl := cfg.GetAnalysis().CacheTTL
			logger.Debug("Analysis cache TTL", zap.Duration("ttl", ttl))
			return caching.NewCachedAnalyzer(cache, service, ttl)
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}
