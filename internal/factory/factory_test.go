package factory

import (
	"testing"

	"github.com/mikey/llm-mail-triage/internal/adapters/filter"
	"github.com/mikey/llm-mail-triage/internal/adapters/httpapi"
	"github.com/mikey/llm-mail-triage/internal/adapters/ner"
	"github.com/mikey/llm-mail-triage/internal/adapters/openai"
	"github.com/mikey/llm-mail-triage/internal/adapters/sentiment"
	"github.com/mikey/llm-mail-triage/internal/caching"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/resilience"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(settings map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range settings {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateCompleter(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tp := utils.NewTextProcessor(logger)

	t.Run("breaker wraps backend", func(t *testing.T) {
		f := NewLLMFactory(testConfig(map[string]any{"openai.api_key": "sk-test"}), logger, tp)
		completer, err := f.CreateCompleter()
		require.NoError(t, err)
		assert.IsType(t, &resilience.BreakerCompleter{}, completer)
		assert.NoError(t, f.Close())
	})

	t.Run("breaker disabled", func(t *testing.T) {
		f := NewLLMFactory(testConfig(map[string]any{"openai.api_key": "sk-test", "breaker.enabled": false}), logger, tp)
		completer, err := f.CreateCompleter()
		require.NoError(t, err)
		assert.IsType(t, &openai.OpenAIClient{}, completer)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewLLMFactory(testConfig(nil), logger, tp).CreateCompleter()
		assert.Error(t, err)

		_, err = NewLLMFactory(testConfig(map[string]any{"llm.provider": "gemini"}), logger, tp).CreateCompleter()
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewLLMFactory(testConfig(map[string]any{"llm.provider": "watson"}), logger, tp).CreateCompleter()
		assert.ErrorContains(t, err, "unsupported LLM provider")
	})
}

func TestCreateCache(t *testing.T) {
	logger := zaptest.NewLogger(t)

	memory := NewCacheFactory(testConfig(map[string]any{"cache.type": "memory"}), logger).CreateCache()
	assert.True(t, memory.Enabled())
	memory.Close()

	disabled := NewCacheFactory(testConfig(map[string]any{"cache.enabled": false}), logger).CreateCache()
	assert.False(t, disabled.Enabled())

	unreachable := NewCacheFactory(testConfig(map[string]any{
		"cache.redis.addr":    "127.0.0.1:1",
		"cache.redis.timeout": "200ms",
	}), logger).CreateCache()
	assert.False(t, unreachable.Enabled())
	assert.Equal(t, caching.DefaultPrefix, unreachable.Prefix())

	_, err := NewCacheFactory(testConfig(map[string]any{"cache.type": "etcd"}), logger).CreateCacheRepository()
	assert.Error(t, err)

	sqlite, err := NewCacheFactory(testConfig(map[string]any{
		"cache.type":        "sqlite",
		"cache.sqlite_path": t.TempDir() + "/nested/cache.db",
	}), logger).CreateCacheRepository()
	require.NoError(t, err)
	sqlite.(interface{ Stop() }).Stop()
}

func TestCreateCapabilities(t *testing.T) {
	logger := zaptest.NewLogger(t)

	classifier, err := NewCapabilityFactory(testConfig(nil), logger).CreateClassifier(nil)
	require.NoError(t, err)
	assert.IsType(t, &sentiment.HTTPClassifier{}, classifier)

	classifier, err = NewCapabilityFactory(testConfig(map[string]any{"sentiment.provider": "llm"}), logger).CreateClassifier(nil)
	require.NoError(t, err)
	assert.IsType(t, &sentiment.LLMClassifier{}, classifier)

	_, err = NewCapabilityFactory(testConfig(map[string]any{"sentiment.endpoint": ""}), logger).CreateClassifier(nil)
	assert.Error(t, err)

	recognizer, err := NewCapabilityFactory(testConfig(nil), logger).CreateRecognizer()
	require.NoError(t, err)
	assert.IsType(t, &ner.ProseRecognizer{}, recognizer)

	_, err = NewCapabilityFactory(testConfig(map[string]any{"ner.provider": "spacy"}), logger).CreateRecognizer()
	assert.Error(t, err)
}

func TestCreateEmailFilters(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cache := caching.New(nil, logger, "", false)

	filters := NewFilterFactory(testConfig(map[string]any{"server.smtp.enabled": true}), logger).
		CreateEmailFilters(nil, nil, cache)
	require.Len(t, filters, 2)
	assert.IsType(t, &httpapi.Server{}, filters[0])
	assert.IsType(t, &filter.SMTPFilter{}, filters[1])

	none := NewFilterFactory(testConfig(map[string]any{"server.http.enabled": false}), logger).
		CreateEmailFilters(nil, nil, cache)
	assert.Empty(t, none)
}
