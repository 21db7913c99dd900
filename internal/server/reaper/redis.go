package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loginsys/authd/internal/common"
)

// DefaultLeaseKey is the Redis key replicas compete for.
const DefaultLeaseKey = "authd:reaper:lease"

// RedisLease is a Lease backed by SET NX PX. The holder renews its own lease
// on the next tick; others see it as held until it expires.
type RedisLease struct {
	client *redis.Client
	key    string
	owner  string
}

func NewRedisLease(client *redis.Client, key string) (*RedisLease, error) {
	if key == "" {
		key = DefaultLeaseKey
	}
	owner, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("lease owner generation error: %w", err)
	}
	return &RedisLease{client: client, key: key, owner: owner}, nil
}

func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; next tick retries
			return false, nil
		}
		return false, err
	}
	if holder != l.owner {
		return false, nil
	}
	if err := l.client.PExpire(ctx, l.key, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// OpenRedis parses url, connects, and pings.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url parse error: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return client, nil
}
