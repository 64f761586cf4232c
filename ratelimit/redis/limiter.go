package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/PaulFidika/otpkit/ratelimit"
	"github.com/redis/go-redis/v9"
)

// Limiter is a Redis-backed sliding window limiter using ZSETs.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	limits map[string]ratelimit.Limit
}

// New builds a limiter. A nil map uses ratelimit.DefaultLimits.
func New(rdb redis.UniversalClient, prefix string, limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{rdb: rdb, prefix: prefix + "rl:", limits: limits}
}

func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := ratelimit.Lookup(l.limits, bucket)
	now := time.Now().UnixNano()
	start := now - lim.Window.Nanoseconds()
	limitKey := l.prefix + bucket + ":" + key
	member := fmt.Sprintf("%d", now)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, limitKey, "0", fmt.Sprintf("%d", start))
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: member})
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		l.rdb.ZRem(ctx, limitKey, member)
		return false, nil
	}
	return true, nil
}

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	return l.Allow(context.Background(), bucket, key)
}
