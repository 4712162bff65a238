// Package ratelimit counts requests per client in fixed windows stored in
// Redis, so every API instance shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	rdb    *redis.Client
	name   string
	max    int
	window time.Duration
	now    func() time.Time
}

// New allows max requests per key in each window. name separates the
// counters of different limiters.
func New(rdb *redis.Client, name string, max int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		name:   name,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

func (l *Limiter) Name() string {
	return l.name
}

// Allow records one request for key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	counterKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.name, key, windowStart.Unix())

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("count request: %w", err)
	}

	count := int(incr.Val())
	return Result{
		Allowed:    count <= l.max,
		Limit:      l.max,
		Remaining:  max(l.max-count, 0),
		RetryAfter: windowStart.Add(l.window).Sub(now),
	}, nil
}
