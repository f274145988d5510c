package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// ModelName doubles as the Azure deployment name when BaseURL points at Azure
	ModelName   string
	TopP        float32
	MaxBodySize int
}

// SentimentConfig selects and configures the sentiment classifier
type SentimentConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// NERConfig selects the entity recognizer
type NERConfig struct {
	Provider string
}

// AnalysisConfig tunes the analysis pipeline
type AnalysisConfig struct {
	Parallel       bool
	StepTimeout    time.Duration
	CacheTTL       time.Duration
	MapConcurrency int
}

// RedisConfig represents the Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// CacheConfig represents the cache store configuration
type CacheConfig struct {
	Type             string
	Enabled          bool
	Prefix           string
	CleanupFrequency time.Duration
	Redis            RedisConfig
	SQLitePath       string
	MySQLDSN         string
}

// BreakerConfig represents the circuit breaker settings
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// HTTPConfig represents the HTTP API settings
type HTTPConfig struct {
	Enabled        bool
	ListenAddress  string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// SMTPConfig represents the SMTP content filter settings
type SMTPConfig struct {
	Enabled         bool
	ListenAddress   string
	ReinjectAddress string
	HeaderPrefix    string
	AnalyzeTimeout  time.Duration
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetSentiment returns the sentiment classifier configuration
func (c *Config) GetSentiment() SentimentConfig {
	return SentimentConfig{
		Provider: c.GetString("sentiment.provider"),
		Endpoint: c.GetString("sentiment.endpoint"),
		APIKey:   c.GetString("sentiment.api_key"),
		Timeout:  c.durationOr("sentiment.timeout", 10*time.Second),
	}
}

// GetNER returns the entity recognizer configuration
func (c *Config) GetNER() NERConfig {
	return NERConfig{
		Provider: c.GetString("ner.provider"),
	}
}

// GetAnalysis returns the analysis pipeline configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Parallel:       c.GetBool("analysis.parallel"),
		StepTimeout:    c.durationOr("analysis.step_timeout", 30*time.Second),
		CacheTTL:       c.durationOr("analysis.cache_ttl", time.Hour),
		MapConcurrency: c.GetInt("analysis.map_concurrency"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		Prefix:           c.GetString("cache.prefix"),
		CleanupFrequency: c.durationOr("cache.cleanup_frequency", 10*time.Minute),
		Redis: RedisConfig{
			Addr:     c.GetString("cache.redis.addr"),
			Password: c.GetString("cache.redis.password"),
			DB:       c.GetInt("cache.redis.db"),
			Timeout:  c.durationOr("cache.redis.timeout", 5*time.Second),
		},
		SQLitePath: c.GetString("cache.sqlite_path"),
		MySQLDSN:   c.GetString("cache.mysql_dsn"),
	}
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() BreakerConfig {
	return BreakerConfig{
		Enabled:          c.GetBool("breaker.enabled"),
		MaxRequests:      uint32(c.GetInt("breaker.max_requests")),
		Interval:         c.durationOr("breaker.interval", time.Minute),
		Timeout:          c.durationOr("breaker.timeout", 30*time.Second),
		FailureThreshold: uint32(c.GetInt("breaker.failure_threshold")),
	}
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		Enabled:        c.GetBool("server.http.enabled"),
		ListenAddress:  c.GetString("server.http.listen_address"),
		AllowedOrigins: c.GetStringSlice("server.http.allowed_origins"),
		MaxBodyBytes:   int64(c.GetInt("server.http.max_body_bytes")),
	}
}

// GetSMTP returns the SMTP content filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:         c.GetBool("server.smtp.enabled"),
		ListenAddress:   c.GetString("server.smtp.listen_address"),
		ReinjectAddress: c.GetString("server.smtp.reinject_address"),
		HeaderPrefix:    c.GetString("server.smtp.header_prefix"),
		AnalyzeTimeout:  c.durationOr("server.smtp.analyze_timeout", 2*time.Minute),
	}
}

// durationOr parses key, falling back when it is unset or malformed
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
