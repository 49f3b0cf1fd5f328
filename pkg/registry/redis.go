package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long an abandoned run's claim set survives.
const DefaultRedisTTL = 24 * time.Hour

// Redis is a Registry backed by a Redis set, so several processes can cooperate
// on one run. SADD is atomic, which gives the first-caller-wins guarantee.
type Redis struct {
	redis *redis.Client
	key   RunKey
	ttl   time.Duration
}

// NewRedis creates a Redis-backed registry for one run.
func NewRedis(redisClient *redis.Client, key RunKey) (*Redis, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	return &Redis{
		redis: redisClient,
		key:   key,
		ttl:   DefaultRedisTTL,
	}, nil
}

// Claim implements Registry.
func (r *Redis) Claim(ctx context.Context, id string) (bool, error) {
	key := r.key.String()

	pipe := r.redis.TxPipeline()
	added := pipe.SAdd(ctx, key, NormalizeID(id))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		recordClaim("redis", false, err)
		return false, fmt.Errorf("redis sadd: %w", err)
	}

	won := added.Val() == 1
	recordClaim("redis", won, nil)
	return won, nil
}

// AllClaimed implements Registry.
func (r *Redis) AllClaimed(ctx context.Context) ([]string, error) {
	ids, err := r.redis.SMembers(ctx, r.key.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return ids, nil
}

// Discard implements Registry.
func (r *Redis) Discard(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key.String()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
