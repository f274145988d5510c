package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

const cacheTable = "analysis_cache"

// likeEscaper makes a key prefix safe inside LIKE ... ESCAPE '!'
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// sqlStore holds the SQL shared by the SQLite and MySQL caches. Expiry is
// stored as unix milliseconds so both engines compare plain integers.
type sqlStore struct {
	db          *sql.DB
	logger      *zap.Logger
	upsertQuery string
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	started     time.Time
	now         func() time.Time
	hits        atomic.Int64
	misses      atomic.Int64
}

func newSQLStore(db *sql.DB, logger *zap.Logger, upsertQuery string, cleanupFreq time.Duration) *sqlStore {
	return &sqlStore{
		db:          db,
		logger:      logger,
		upsertQuery: upsertQuery,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		started:     time.Now(),
		now:         time.Now,
	}
}

// Get retrieves a cached value
func (s *sqlStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM `+cacheTable+` WHERE cache_key = ? AND expires_at > ?`,
		key, s.now().UnixMilli(),
	).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.misses.Add(1)
			return "", core.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to query cache: %w", err)
	}

	s.hits.Add(1)
	return value, nil
}

// Set stores a value until ttl elapses
func (s *sqlStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixMilli()
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+cacheTable+` WHERE cache_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix
func (s *sqlStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM `+cacheTable+` WHERE cache_key LIKE ? ESCAPE '!'`,
		likeEscaper.Replace(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cache entries: %w", err)
	}
	return int(rowsAffected), nil
}

// Stats counts live entries under prefix and sums their payload size
func (s *sqlStore) Stats(ctx context.Context, prefix string) (*core.CacheStats, error) {
	var total int
	var size int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0) FROM `+cacheTable+
			` WHERE cache_key LIKE ? ESCAPE '!' AND expires_at > ?`,
		likeEscaper.Replace(prefix)+"%", s.now().UnixMilli(),
	).Scan(&total, &size)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}

	return &core.CacheStats{
		TotalKeys:  total,
		MemoryUsed: humanize.Bytes(uint64(size)),
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Uptime:     int64(time.Since(s.started).Seconds()),
	}, nil
}

// Cleanup removes expired entries
func (s *sqlStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM `+cacheTable+` WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

func (s *sqlStore) startCleanup(store core.CacheRepository) {
	if s.cleanupFreq > 0 {
		go startCleanupTask(store, s.logger, s.cleanupFreq, s.stopCh)
	}
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close cache database", zap.Error(err))
		}
	})
}
