package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mentorhub/payouts/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// AcquirePayoutLock takes a short-lived per-booking lock so the webhook
// handler and the sweeper don't process the same booking at the same time.
// Best effort only: the TTL bounds how long a crashed holder can keep it.
func (c *RedisCache) AcquirePayoutLock(ctx context.Context, bookingID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, payoutLockKey(bookingID), "locked", ttl).Result()
}

func (c *RedisCache) ReleasePayoutLock(ctx context.Context, bookingID int64) error {
	return c.client.Del(ctx, payoutLockKey(bookingID)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func payoutLockKey(bookingID int64) string {
	return fmt.Sprintf("lock:payout:booking:%d", bookingID)
}
