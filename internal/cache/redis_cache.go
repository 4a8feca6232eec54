package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisReportCache keys entries under prefix and bumps a generation counter
// on Invalidate, which orphans every older entry until its TTL runs out.
type RedisReportCache struct {
	client *redis.Client
	prefix string
}

func NewRedisReportCache(client *redis.Client, prefix string) *RedisReportCache {
	if prefix == "" {
		prefix = "restodesk"
	}
	return &RedisReportCache{client: client, prefix: prefix + ":report"}
}

func (c *RedisReportCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *RedisReportCache) entryKey(gen string, key string) string {
	return c.prefix + ":" + gen + ":" + key
}

func (c *RedisReportCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Result()
	if err == redis.Nil {
		return "0", nil
	}
	return gen, err
}

func (c *RedisReportCache) Get(ctx context.Context, key string, dest any) (string, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", false, err
	}
	val, err := c.client.Get(ctx, c.entryKey(gen, key)).Result()
	if err == redis.Nil {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return gen, false, err
	}
	return gen, true, nil
}

// setIfCurrent writes the entry only while the generation still matches.
var setIfCurrent = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// Set stores value under gen, the generation returned by the Get that
// missed. Nothing is written when gen is empty or has been invalidated.
func (c *RedisReportCache) Set(ctx context.Context, gen string, key string, value any, ttl time.Duration) error {
	if value == nil || gen == "" {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	keys := []string{c.genKey(), c.entryKey(gen, key)}
	return setIfCurrent.Run(ctx, c.client, keys, gen, payload, ttl.Milliseconds()).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.genKey()).Err()
}
