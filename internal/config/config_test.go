package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "openai", cfg.GetLLM().Provider)

	analysis := cfg.GetAnalysis()
	assert.True(t, analysis.Parallel)
	assert.Equal(t, time.Hour, analysis.CacheTTL)
	assert.Equal(t, 30*time.Second, analysis.StepTimeout)

	cache := cfg.GetCache()
	assert.Equal(t, "redis", cache.Type)
	assert.True(t, cache.Enabled)
	assert.Equal(t, "mailtriage:cache:", cache.Prefix)
	assert.Equal(t, "localhost:6379", cache.Redis.Addr)

	assert.Equal(t, uint32(5), cfg.GetBreaker().FailureThreshold)
	assert.Equal(t, ":8080", cfg.GetHTTP().ListenAddress)
	assert.Equal(t, "X-Triage-", cfg.GetSMTP().HeaderPrefix)
}

func TestNewWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: gemini
analysis:
  parallel: false
  cache_ttl: 15m
cache:
  type: sqlite
  sqlite_path: /tmp/triage.db
triage:
  skip_domains:
    - example.com
    - corp.example.org
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.False(t, cfg.GetAnalysis().Parallel)
	assert.Equal(t, 15*time.Minute, cfg.GetAnalysis().CacheTTL)
	assert.Equal(t, "sqlite", cfg.GetCache().Type)
	assert.Equal(t, []string{"example.com", "corp.example.org"}, cfg.GetStringSlice("triage.skip_domains"))
	// untouched keys keep their defaults
	assert.Equal(t, "gpt-3.5-turbo", cfg.GetOpenAI().ModelName)
}

func TestNewWithFileMissing(t *testing.T) {
	_, err := NewWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("MAIL_TRIAGE_CACHE_TYPE", "memory")
	t.Setenv("MAIL_TRIAGE_ANALYSIS_STEP_TIMEOUT", "5s")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  type: redis\n"), 0o600))

	cfg, err := NewWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.GetCache().Type)
	assert.Equal(t, 5*time.Second, cfg.GetAnalysis().StepTimeout)
}

func TestMalformedDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("analysis.cache_ttl", "soon")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("analysis.cache_ttl")
	assert.Error(t, err)
	assert.Equal(t, time.Hour, cfg.GetAnalysis().CacheTTL)
}
