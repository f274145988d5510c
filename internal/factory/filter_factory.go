package factory

import (
	"io"

	"github.com/mikey/llm-mail-triage/internal/adapters/filter"
	"github.com/mikey/llm-mail-triage/internal/adapters/httpapi"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/ports"
	"github.com/mikey/llm-mail-triage/internal/whitelist"
	"go.uber.org/zap"
)

// FilterFactory creates the email frontends based on configuration
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailFilters creates every enabled server frontend
func (f *FilterFactory) CreateEmailFilters(
	analyzer core.Analyzer,
	enhancer httpapi.QueryEnhancer,
	cache httpapi.CacheAdmin,
) []ports.EmailFilter {
	var filters []ports.EmailFilter

	if httpCfg := f.cfg.GetHTTP(); httpCfg.Enabled {
		filters = append(filters, httpapi.NewServer(analyzer, enhancer, cache, f.logger, httpapi.Options{
			ListenAddress:  httpCfg.ListenAddress,
			AllowedOrigins: httpCfg.AllowedOrigins,
			MaxBodyBytes:   httpCfg.MaxBodyBytes,
		}))
	}

	if smtpCfg := f.cfg.GetSMTP(); smtpCfg.Enabled {
		skip := whitelist.NewChecker(f.cfg.GetStringSlice("triage.skip_domains"), f.logger)
		filters = append(filters, filter.NewSMTPFilter(
			analyzer,
			skip,
			f.logger,
			smtpCfg.ListenAddress,
			smtpCfg.ReinjectAddress,
			smtpCfg.HeaderPrefix,
			smtpCfg.AnalyzeTimeout,
		))
	}

	return filters
}

// CreateCliFilter creates the single-message CLI frontend
func (f *FilterFactory) CreateCliFilter(analyzer core.Analyzer, out io.Writer, verbose, jsonOutput bool) *filter.CliFilter {
	return filter.NewCliFilter(analyzer, f.logger, out, verbose, jsonOutput)
}
