package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"restodesk/backend/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	addr := os.Getenv("RESTODESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set RESTODESK_TEST_REDIS_ADDR to run redis integration test")
	}

	prefix := fmt.Sprintf("restodesk-test-%d", time.Now().UnixNano())
	s := New(addr, os.Getenv("RESTODESK_TEST_REDIS_PASSWORD"), 0, prefix)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		iter := s.client.Scan(ctx, 0, prefix+":*", 200).Iterator()
		for iter.Next(ctx) {
			_ = s.client.Del(ctx, iter.Val()).Err()
		}
		_ = s.Close()
	})

	storetest.Run(t, s)
}
