package cache

import (
	"context"
	"time"
)

// ReportCache holds computed report payloads for a short TTL. Lookups are
// best-effort: a miss or a backend error both read as "not cached".
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// NoopReportCache caches nothing. Used when no Redis address is configured.
type NoopReportCache struct{}

func NewNoopReportCache() *NoopReportCache { return &NoopReportCache{} }

func (*NoopReportCache) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (*NoopReportCache) Set(context.Context, string, []byte, time.Duration) {}

func (*NoopReportCache) Invalidate(context.Context, ...string) {}
