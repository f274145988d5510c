package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig configures the circuit breaker around a completion backend
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32
	// Interval is the cyclic period of the closed state for clearing counts
	Interval time.Duration
	// Timeout is how long the breaker stays open
	Timeout time.Duration
	// FailureThreshold trips the breaker after this many consecutive failures
	FailureThreshold uint32
}

// DefaultBreakerConfig returns sensible defaults
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerCompleter guards a Completer with a circuit breaker and records
// completion latency. While open, calls fail fast with gobreaker.ErrOpenState.
type BreakerCompleter struct {
	next     core.Completer
	provider string
	breaker  *gobreaker.CircuitBreaker[string]
	logger   *zap.Logger
}

// NewBreakerCompleter wraps next. provider labels logs and metrics.
func NewBreakerCompleter(next core.Completer, provider string, cfg BreakerConfig, logger *zap.Logger) *BreakerCompleter {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.RecordBreakerStateChange(name, to.String())
		},
		// a caller giving up says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerCompleter{
		next:     next,
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker[string](settings),
		logger:   logger,
	}
}

// Complete implements core.Completer
func (b *BreakerCompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	start := time.Now()

	text, err := b.breaker.Execute(func() (string, error) {
		return b.next.Complete(ctx, req)
	})

	status := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	metrics.RecordCompletionLatency(b.provider, status, time.Since(start))

	return text, err
}

// State reports the current breaker state
func (b *BreakerCompleter) State() gobreaker.State {
	return b.breaker.State()
}
