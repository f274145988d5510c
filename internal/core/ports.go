package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidEmail is returned when Analyze is called without an email
	ErrInvalidEmail = errors.New("email is required")
	// ErrCacheMiss is returned by a CacheRepository when a key is absent or expired
	ErrCacheMiss = errors.New("cache entry not found")
	// ErrEmptyCompletion is returned when a backend answers with no text
	ErrEmptyCompletion = errors.New("empty completion")
)

// CompletionRequest is a single chat-style prompt
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer defines the interface for interacting with LLM services
type Completer interface {
	// Complete sends a system instruction and user message and returns the reply text
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// SentimentClassifier returns a raw polarity label and its confidence in [0,1]
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (label string, score float64, err error)
}

// EntityRecognizer finds named entities in text
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// Analyzer is implemented by anything that turns an email into an AnalysisResult
type Analyzer interface {
	Analyze(ctx context.Context, email *Email) (*AnalysisResult, error)
}

// CacheRepository defines the key-value store behind the cache layer
type CacheRepository interface {
	// Get returns the stored value or ErrCacheMiss
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value that expires after ttl
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a single key
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix and returns how many were removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Stats reports store statistics for keys under prefix
	Stats(ctx context.Context, prefix string) (*CacheStats, error)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
