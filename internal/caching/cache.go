package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultPrefix namespaces every key written by the cache layer
const DefaultPrefix = "mailtriage:cache:"

// ErrNoStore is returned by Stats when no backing store is configured
var ErrNoStore = errors.New("cache store not configured")

// Cache memoizes computations in a CacheRepository. Store failures never
// reach callers: the computation simply runs uncached.
type Cache struct {
	store   core.CacheRepository
	logger  *zap.Logger
	prefix  string
	enabled atomic.Bool
	flight  singleflight.Group
}

// New creates a cache over store. A nil store behaves as a disabled cache.
func New(store core.CacheRepository, logger *zap.Logger, prefix string, enabled bool) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	c := &Cache{
		store:  store,
		logger: logger,
		prefix: prefix,
	}
	c.enabled.Store(enabled)
	return c
}

// Enabled reports whether reads and writes go through the store
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil && c.enabled.Load()
}

// SetEnabled flips the global switch at runtime
func (c *Cache) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	c.logger.Info("Cache switch changed", zap.Bool("enabled", enabled))
}

// Prefix returns the key namespace
func (c *Cache) Prefix() string {
	return c.prefix
}

// Key derives the storage key for op called with args and kwargs. Keyword
// arguments are sorted by name so their order never changes the key. Every
// part is length-prefixed so no two argument lists hash the same input.
func (c *Cache) Key(op string, args []any, kwargs map[string]any) string {
	h := sha256.New()
	writePart := func(part string) {
		fmt.Fprintf(h, "%d:%s", len(part), part)
	}

	writePart(op)
	for _, arg := range args {
		writePart(fmt.Sprint(arg))
	}

	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writePart(fmt.Sprintf("%s:%v", name, kwargs[name]))
	}

	return c.prefix + op + ":" + hex.EncodeToString(h.Sum(nil))
}

// flightResult is what one shared computation hands to every caller
type flightResult struct {
	value any
	data  []byte
	err   error
	// canceled is set when the computing caller's context ended before the
	// computation returned. Such a value may be made of fallbacks.
	canceled bool
}

// GetOrCompute returns the cached value for (op, args, kwargs) or runs compute
// and stores its result for ttl. Errors from compute are returned and never
// cached. A result computed while ctx had already ended is returned to that
// caller only: it is not stored, and callers still waiting recompute it.
func GetOrCompute[T any](
	ctx context.Context,
	c *Cache,
	op string,
	args []any,
	kwargs map[string]any,
	ttl time.Duration,
	compute func(context.Context) (T, error),
) (T, error) {
	if !c.Enabled() {
		metrics.RecordCacheLookup(op, "bypass")
		return compute(ctx)
	}

	key := c.Key(op, args, kwargs)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil && raw != "":
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			metrics.RecordCacheLookup(op, "hit")
			c.logger.Debug("Cache hit", zap.String("key", key), zap.String("op", op))
			return cached, nil
		}
		c.logger.Warn("Could not deserialize cached data",
			zap.String("key", key),
			zap.String("data_sample", utils.Head(raw, 100)))
	case err == nil, errors.Is(err, core.ErrCacheMiss):
	default:
		metrics.RecordCacheLookup(op, "error")
		c.logger.Error("Cache store error on get, computing directly",
			zap.String("key", key),
			zap.String("op", op),
			zap.Error(err))
		return compute(ctx)
	}

	metrics.RecordCacheLookup(op, "miss")
	c.logger.Debug("Cache miss", zap.String("key", key), zap.String("op", op))

	for {
		// concurrent misses on one key share a single computation
		v, _, shared := c.flight.Do(key, func() (any, error) {
			return c.computeAndStore(ctx, key, op, ttl, func(ctx context.Context) (any, error) {
				return compute(ctx)
			}), nil
		})
		res := v.(flightResult)

		if res.canceled && ctx.Err() == nil {
			// computed under another caller's ended context
			c.logger.Debug("Shared computation was canceled, recomputing",
				zap.String("key", key),
				zap.String("op", op))
			continue
		}

		var zero T
		if res.err != nil {
			return zero, res.err
		}
		if shared && res.data != nil {
			// waiters each get their own copy
			var own T
			if err := json.Unmarshal(res.data, &own); err == nil {
				return own, nil
			}
		}
		value, _ := res.value.(T)
		return value, nil
	}
}

// computeAndStore runs compute and stores its serialized result, unless the
// computation failed or ctx ended while it ran.
func (c *Cache) computeAndStore(
	ctx context.Context,
	key, op string,
	ttl time.Duration,
	compute func(context.Context) (any, error),
) flightResult {
	start := time.Now()
	value, err := compute(ctx)
	res := flightResult{value: value, err: err, canceled: ctx.Err() != nil}
	if err != nil {
		return res
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to serialize result for caching",
			zap.String("op", op),
			zap.String("result_type", fmt.Sprintf("%T", value)),
			zap.Error(err))
		return res
	}
	res.data = data

	if res.canceled {
		c.logger.Warn("Context ended during computation, result not cached",
			zap.String("key", key),
			zap.String("op", op),
			zap.Error(ctx.Err()))
		return res
	}

	c.put(ctx, key, op, data, ttl, time.Since(start))
	return res
}

// put stores serialized data. Failures are logged and dropped.
func (c *Cache) put(ctx context.Context, key, op string, data []byte, ttl, elapsed time.Duration) {
	if err := c.store.Set(ctx, key, string(data), ttl); err != nil {
		c.logger.Error("Failed to cache result", zap.String("op", op), zap.Error(err))
		return
	}

	c.logger.Debug("Cached function result",
		zap.String("key", key),
		zap.String("op", op),
		zap.Duration("ttl", ttl),
		zap.Duration("exec_time", elapsed))
}

// Wrap returns a cached variant of fn. keyArgs picks the positional key
// arguments out of the input.
func Wrap[In, Out any](
	c *Cache,
	op string,
	ttl time.Duration,
	keyArgs func(In) []any,
	fn func(context.Context, In) (Out, error),
) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		return GetOrCompute(ctx, c, op, keyArgs(in), nil, ttl, func(ctx context.Context) (Out, error) {
			return fn(ctx, in)
		})
	}
}

// Invalidate deletes every key beginning with the namespace prefix plus
// pattern and returns how many were removed. Store failures report 0.
func (c *Cache) Invalidate(ctx context.Context, pattern string) int {
	if c == nil || c.store == nil {
		return 0
	}

	count, err := c.store.DeletePrefix(ctx, c.prefix+pattern)
	if err != nil {
		c.logger.Error("Cache store error on invalidate", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}

	if count > 0 {
		c.logger.Info("Invalidated cache keys", zap.String("pattern", pattern), zap.Int("count", count))
	}
	return count
}

// Stats reports the backing store statistics for the cache namespace
func (c *Cache) Stats(ctx context.Context) (*core.CacheStats, error) {
	if c == nil || c.store == nil {
		return nil, ErrNoStore
	}

	stats, err := c.store.Stats(ctx, c.prefix)
	if err != nil {
		c.logger.Error("Cache store error on stats", zap.Error(err))
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// Close stops background work and connections held by the backing store
func (c *Cache) Close() {
	if c == nil {
		return
	}
	if s, ok := c.store.(interface{ Stop() }); ok {
		s.Stop()
	}
}
