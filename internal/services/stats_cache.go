package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tresorerie/backend/internal/models"
)

const statsGenerationKey = "stats:gen"

// RedisStatsCache stores GetStats results in Redis. Invalidation bumps a
// generation counter so stale entries simply stop being addressed and expire.
type RedisStatsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var (
	_ StatsCache = (*RedisStatsCache)(nil)
	_ StatsCache = (*MemoryStatsCache)(nil)
)

// noGeneration is returned by Get when the current generation is unknown.
// Set drops fills carrying it.
const noGeneration int64 = -1

func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStatsCache {
	return &RedisStatsCache{redis: client, ttl: ttl, logger: logger}
}

func (c *RedisStatsCache) Get(ctx context.Context, f models.StatsFilter) (*models.Stats, int64, bool) {
	gen, err := c.redis.Get(ctx, statsGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("stats cache generation unavailable", "error", err)
		return nil, noGeneration, false
	}

	key := redisStatsKey(gen, f)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, gen, false
	}
	if err != nil {
		c.logger.Warn("stats cache read failed", "key", key, "error", err)
		return nil, gen, false
	}

	var stats models.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		c.logger.Warn("stats cache entry unreadable", "key", key, "error", err)
		return nil, gen, false
	}
	return &stats, gen, true
}

// Set stores stats under the generation observed by the Get that missed. If a
// write invalidated in between, the entry lands under a retired generation
// and is never read.
func (c *RedisStatsCache) Set(ctx context.Context, f models.StatsFilter, gen int64, stats models.Stats) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	key := redisStatsKey(gen, f)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", "key", key, "error", err)
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, statsGenerationKey).Err(); err != nil {
		c.logger.Warn("stats cache invalidation failed", "error", err)
	}
}

func redisStatsKey(gen int64, f models.StatsFilter) string {
	return fmt.Sprintf("stats:%d:%s", gen, statsKey(f))
}

func dayKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(models.DateLayout)
}

// MemoryStatsCache keeps GetStats results in process memory. It backs the
// ledger when Redis is disabled; entries do not survive a restart and are not
// shared between replicas. Entries are keyed by generation like the Redis
// cache, so a fill that raced an invalidation is never served.
type MemoryStatsCache struct {
	items *gocache.Cache
	gen   atomic.Int64
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{items: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryStatsCache) Get(_ context.Context, f models.StatsFilter) (*models.Stats, int64, bool) {
	gen := c.gen.Load()
	v, ok := c.items.Get(memoryStatsKey(gen, f))
	if !ok {
		return nil, gen, false
	}
	stats := v.(models.Stats)
	return &stats, gen, true
}

func (c *MemoryStatsCache) Set(_ context.Context, f models.StatsFilter, gen int64, stats models.Stats) {
	if gen < 0 || gen != c.gen.Load() {
		return
	}
	c.items.SetDefault(memoryStatsKey(gen, f), stats)
}

// Invalidate retires the current generation and drops its entries.
func (c *MemoryStatsCache) Invalidate(context.Context) {
	c.gen.Add(1)
	c.items.Flush()
}

func memoryStatsKey(gen int64, f models.StatsFilter) string {
	return strconv.FormatInt(gen, 10) + ":" + statsKey(f)
}

func statsKey(f models.StatsFilter) string {
	return dayKey(f.From) + ":" + dayKey(f.To)
}
