package cache

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeClock drives expiry for stores that read the time themselves
type fakeClock struct {
	base   time.Time
	offset time.Duration
}

func (c *fakeClock) now() time.Time { return c.base.Add(c.offset) }

func (c *fakeClock) advance(d time.Duration) { c.offset += d }

func runRepositoryContract(t *testing.T, repo core.CacheRepository, advance func(time.Duration)) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := repo.Get(ctx, "absent")
		assert.ErrorIs(t, err, core.ErrCacheMiss)
	})

	t.Run("round trip and overwrite", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "rt", `{"summary":"one"}`, time.Hour))
		value, err := repo.Get(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, `{"summary":"one"}`, value)

		require.NoError(t, repo.Set(ctx, "rt", `{"summary":"two"}`, time.Hour))
		value, err = repo.Get(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, `{"summary":"two"}`, value)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "ttl", "v", time.Minute))
		_, err := repo.Get(ctx, "ttl")
		require.NoError(t, err)

		advance(2 * time.Minute)

		_, err = repo.Get(ctx, "ttl")
		assert.ErrorIs(t, err, core.ErrCacheMiss)
		require.NoError(t, repo.Cleanup(ctx))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "gone", "v", time.Hour))
		require.NoError(t, repo.Delete(ctx, "gone"))
		_, err := repo.Get(ctx, "gone")
		assert.ErrorIs(t, err, core.ErrCacheMiss)
	})

	t.Run("delete prefix", func(t *testing.T) {
		for _, key := range []string{"ns:x:1", "ns:x:2", "ns:y:1"} {
			require.NoError(t, repo.Set(ctx, key, "v", time.Hour))
		}

		stats, err := repo.Stats(ctx, "ns:")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalKeys)
		assert.NotEmpty(t, stats.MemoryUsed)

		deleted, err := repo.DeletePrefix(ctx, "ns:x")
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		_, err = repo.Get(ctx, "ns:y:1")
		assert.NoError(t, err)

		deleted, err = repo.DeletePrefix(ctx, "ns:nothing")
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("prefix is literal", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "lit:a_b:1", "v", time.Hour))
		require.NoError(t, repo.Set(ctx, "lit:axb:1", "v", time.Hour))

		deleted, err := repo.DeletePrefix(ctx, "lit:a_b")
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = repo.Get(ctx, "lit:axb:1")
		assert.NoError(t, err)
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(zaptest.NewLogger(t), 0)
	defer c.Stop()

	clock := &fakeClock{base: time.Now()}
	c.now = clock.now

	runRepositoryContract(t, c, clock.advance)

	stats, err := c.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Positive(t, stats.Hits)
	assert.Positive(t, stats.Misses)
}

func TestMemoryCacheCleanupRemovesExpired(t *testing.T) {
	c := NewMemoryCache(zaptest.NewLogger(t), 0)
	defer c.Stop()

	clock := &fakeClock{base: time.Now()}
	c.now = clock.now

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", "v", time.Second))
	require.NoError(t, c.Set(ctx, "long", "v", time.Hour))

	clock.advance(time.Minute)
	require.NoError(t, c.Cleanup(ctx))

	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	assert.Equal(t, []string{"long"}, keys)
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zaptest.NewLogger(t), 0)
	require.NoError(t, err)
	defer c.Stop()

	clock := &fakeClock{base: time.Now()}
	c.now = clock.now

	runRepositoryContract(t, c, clock.advance)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, zaptest.NewLogger(t))
	defer c.Stop()

	runRepositoryContract(t, c, mr.FastForward)
}

func TestRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := NewRedisCacheFromClient(client, zaptest.NewLogger(t))
	defer c.Stop()

	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrCacheMiss)
}

func TestNewRedisCacheFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisOptions{Addr: addr, Timeout: 200 * time.Millisecond}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestParseInfo(t *testing.T) {
	info := "# Memory\r\nused_memory_human:1.02M\r\n\r\n# Stats\r\nkeyspace_hits:12\r\nkeyspace_misses:3\r\n"
	fields := parseInfo(info)

	assert.Equal(t, "1.02M", fields["used_memory_human"])
	assert.Equal(t, "12", fields["keyspace_hits"])
	assert.Equal(t, "3", fields["keyspace_misses"])
}
