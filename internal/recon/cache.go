package recon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// RedisReportCache keeps sync reports hot for dashboards so repeated checks
// over the same window skip the four aggregate scans.
type RedisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) *RedisReportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisReportCache{client: client, ttl: ttl}
}

func reportKey(rng shared.DateRange) string {
	return fmt.Sprintf("recon:report:%s", rng.String())
}

func (c *RedisReportCache) Get(ctx context.Context, rng shared.DateRange) (SyncReport, bool, error) {
	raw, err := c.client.Get(ctx, reportKey(rng)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SyncReport{}, false, nil
	}
	if err != nil {
		return SyncReport{}, false, err
	}
	var report SyncReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return SyncReport{}, false, err
	}
	return report, true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, report SyncReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reportKey(report.Window), raw, c.ttl).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context, rng shared.DateRange) error {
	return c.client.Del(ctx, reportKey(rng)).Err()
}
