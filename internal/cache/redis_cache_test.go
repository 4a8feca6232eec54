package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type summary struct {
	Orders int `json:"orders"`
}

func newRedisCache(t *testing.T) *RedisReportCache {
	t.Helper()
	addr := os.Getenv("RESTODESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set RESTODESK_TEST_REDIS_ADDR to run redis cache integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("RESTODESK_TEST_REDIS_PASSWORD")})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	prefix := fmt.Sprintf("restodesk-cache-test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+":*", 200).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})
	return NewRedisReportCache(client, prefix)
}

func TestRedisReportCacheHitAfterSet(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()

	var got summary
	gen, hit, err := c.Get(ctx, "manager:today", &got)
	if err != nil || hit {
		t.Fatalf("expected clean miss, got hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, gen, "manager:today", summary{Orders: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, hit, err = c.Get(ctx, "manager:today", &got)
	if err != nil || !hit || got.Orders != 3 {
		t.Fatalf("expected cached summary, got hit=%v err=%v value=%+v", hit, err, got)
	}
}

func TestRedisReportCacheInvalidateHidesEntries(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()

	var got summary
	gen, _, _ := c.Get(ctx, "kitchen:today", &got)
	if err := c.Set(ctx, gen, "kitchen:today", summary{Orders: 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, hit, err := c.Get(ctx, "kitchen:today", &got); err != nil || hit {
		t.Fatalf("expected miss after invalidate, got hit=%v err=%v", hit, err)
	}
}

func TestRedisReportCacheDropsSetFromOldGeneration(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()

	var got summary
	stale, _, _ := c.Get(ctx, "delivery:today", &got)
	// A write lands while the report is being built.
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, stale, "delivery:today", summary{Orders: 9}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, hit, err := c.Get(ctx, "delivery:today", &got); err != nil || hit {
		t.Fatalf("expected stale report to be dropped, got hit=%v err=%v value=%+v", hit, err, got)
	}
}
