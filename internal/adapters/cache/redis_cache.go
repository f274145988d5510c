package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	scanBatchSize   = 100
	deleteBatchSize = 500
)

// globEscaper makes a key prefix literal inside a SCAN MATCH pattern
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// RedisCache is a Redis implementation of the CacheRepository interface.
// Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisCache, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Get retrieves a cached value
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, nil
}

// Set stores a value with a Redis TTL
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix. Keys are found with
// SCAN rather than KEYS so large keyspaces do not block the server.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete cache entries: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

// Stats combines the key count under prefix with the server INFO counters
func (c *RedisCache) Stats(ctx context.Context, prefix string) (*core.CacheStats, error) {
	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	stats := &core.CacheStats{
		TotalKeys:  len(keys),
		MemoryUsed: "unknown",
	}

	info, err := c.client.Info(ctx).Result()
	if err != nil {
		c.logger.Warn("Failed to read Redis INFO", zap.Error(err))
		return stats, nil
	}

	fields := parseInfo(info)
	if v, ok := fields["used_memory_human"]; ok {
		stats.MemoryUsed = v
	}
	stats.Hits, _ = strconv.ParseInt(fields["keyspace_hits"], 10, 64)
	stats.Misses, _ = strconv.ParseInt(fields["keyspace_misses"], 10, 64)
	stats.Uptime, _ = strconv.ParseInt(fields["uptime_in_seconds"], 10, 64)

	return stats, nil
}

// Cleanup is a no-op; Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis connection pool
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}

func (c *RedisCache) scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, globEscaper.Replace(prefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}

// parseInfo reads "field:value" lines from an INFO reply
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, value, ok := strings.Cut(line, ":"); ok {
			fields[name] = value
		}
	}
	return fields
}
