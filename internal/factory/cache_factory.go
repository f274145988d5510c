package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-mail-triage/internal/adapters/cache"
	"github.com/mikey/llm-mail-triage/internal/caching"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache stores based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates the configured backing store
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), cacheCfg.Redis.Timeout)
		defer cancel()
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cacheCfg.Redis.Addr,
			Password: cacheCfg.Redis.Password,
			DB:       cacheCfg.Redis.DB,
			Timeout:  cacheCfg.Redis.Timeout,
		}, f.logger)
	case "memory":
		return cache.NewMemoryCache(f.logger, cacheCfg.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, cacheCfg.CleanupFrequency)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, cacheCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// CreateCache wraps the store in the analysis cache. An unreachable store
// leaves the cache without a backend so analysis still runs uncached.
func (f *CacheFactory) CreateCache() *caching.Cache {
	cacheCfg := f.cfg.GetCache()
	if !cacheCfg.Enabled {
		f.logger.Info("Analysis cache disabled")
		return caching.New(nil, f.logger, cacheCfg.Prefix, false)
	}

	store, err := f.CreateCacheRepository()
	if err != nil {
		f.logger.Warn("Cache store unavailable, caching disabled",
			zap.String("type", cacheCfg.Type),
			zap.Error(err))
		return caching.New(nil, f.logger, cacheCfg.Prefix, false)
	}

	f.logger.Info("Analysis cache enabled",
		zap.String("type", cacheCfg.Type),
		zap.String("prefix", cacheCfg.Prefix))
	return caching.New(store, f.logger, cacheCfg.Prefix, true)
}
