package cache

import (
	"context"
	"time"
)

// ReportCache stores rendered report payloads for a short TTL so dashboard
// polling does not re-aggregate every collection on each tick.
//
// Get returns the generation it read alongside the lookup. A Set with that
// generation is dropped if Invalidate ran in between, so a report built
// from data older than the last write is never served as current.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (gen string, hit bool, err error)
	Set(ctx context.Context, gen string, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string, _ any) (string, bool, error) {
	return "", false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
