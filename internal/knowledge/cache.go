package knowledge

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layaask/answerbot/internal/planner"
)

// RedisCache caches rendered knowledge context in Redis so repeated
// lookups for popular symbols skip the endpoint. Errors are logged and
// swallowed: the cache is an accelerator, never a dependency.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[KCACHE] ", log.LstdFlags)
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) key(tool planner.ToolKind, query string) string {
	sum := sha1.Sum([]byte(string(tool) + "\x00" + query))
	return "answerbot:kctx:" + hex.EncodeToString(sum[:])
}

// Get returns the cached context for one plan entry.
func (c *RedisCache) Get(ctx context.Context, tool planner.ToolKind, query string) (string, bool) {
	val, err := c.client.Get(ctx, c.key(tool, query)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Printf("cache get failed: %v", err)
		return "", false
	}
	return val, true
}

// Set stores the context for one plan entry with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, tool planner.ToolKind, query, rendered string) {
	if rendered == "" {
		return
	}
	if err := c.client.Set(ctx, c.key(tool, query), rendered, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set failed: %v", err)
	}
}
