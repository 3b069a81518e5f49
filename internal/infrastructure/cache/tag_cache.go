// Package cache keeps the tag aggregation in Redis between store writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

const (
	tagCacheKey      = "delicious:tags"
	tagGenerationKey = "delicious:tags:generation"
	defaultCacheTTL  = 5 * time.Minute
)

// TagCache implements application.TagCache on top of Redis. Redis failures are logged
// and treated as cache misses so the aggregation falls back to Mongo.
type TagCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type tagEntry struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// NewTagCache parses a redis:// URL and returns a cache bound to it.
func NewTagCache(redisURL string, ttl time.Duration, logger *zap.Logger) (*TagCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewTagCacheWithClient(redis.NewClient(opts), ttl, logger), nil
}

func NewTagCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TagCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached tags together with the generation current at read time.
func (c *TagCache) Get(ctx context.Context) ([]domain.TagCount, int64, bool) {
	vals, err := c.client.MGet(ctx, tagCacheKey, tagGenerationKey).Result()
	if err != nil {
		c.logger.Warn("tag cache read failed", zap.Error(err))
		return nil, 0, false
	}
	generation, err := parseGeneration(vals[1])
	if err != nil {
		c.logger.Warn("tag cache generation corrupt", zap.Error(err))
		return nil, 0, false
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, false
	}
	var entries []tagEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("tag cache entry corrupt", zap.Error(err))
		return nil, generation, false
	}
	tags := make([]domain.TagCount, 0, len(entries))
	for _, e := range entries {
		tags = append(tags, domain.TagCount{Tag: e.Tag, Count: e.Count})
	}
	return tags, generation, true
}

// Set stores tags unless an Invalidate bumped the generation after the caller's Get.
func (c *TagCache) Set(ctx context.Context, generation int64, tags []domain.TagCount) {
	entries := make([]tagEntry, 0, len(tags))
	for _, t := range tags {
		entries = append(entries, tagEntry{Tag: t.Tag, Count: t.Count})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("tag cache encode failed", zap.Error(err))
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, tagGenerationKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		cur, err := parseGeneration(current)
		if err != nil {
			return err
		}
		if cur != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tagCacheKey, raw, c.ttl)
			return nil
		})
		return err
	}, tagGenerationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("tag cache write skipped, tags changed during read", zap.Int64("generation", generation))
	default:
		c.logger.Warn("tag cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached tags and bumps the generation in one transaction.
func (c *TagCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, tagGenerationKey)
		pipe.Del(ctx, tagCacheKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("tag cache invalidate failed", zap.Error(err))
	}
}

var errStaleGeneration = errors.New("tag cache generation changed")

// parseGeneration reads the generation counter; a missing key is generation 0.
func parseGeneration(v any) (int64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		if g == "" {
			return 0, nil
		}
		return strconv.ParseInt(g, 10, 64)
	default:
		return 0, errors.New("unexpected generation type")
	}
}

// Ping reports whether Redis is reachable.
func (c *TagCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *TagCache) Close() error {
	return c.client.Close()
}
