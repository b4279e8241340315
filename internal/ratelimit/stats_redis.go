package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStats aggregates decisions in Redis hashes so several replicas share
// one view. Minute buckets and per-key hashes expire after ttl; the total
// hash is cumulative.
type RedisStats struct {
	rdb       redis.Cmdable
	prefix    string
	ttl       time.Duration
	trackKeys bool
}

// RedisStatsOptions configure RedisStats.
type RedisStatsOptions struct {
	Prefix    string
	TTL       time.Duration
	TrackKeys bool
}

// NewRedisStats wraps a Redis client.
func NewRedisStats(rdb redis.Cmdable, opts RedisStatsOptions) *RedisStats {
	prefix := strings.Trim(opts.Prefix, ":")
	if prefix == "" {
		prefix = "buyback:ratelimit"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStats{rdb: rdb, prefix: prefix, ttl: ttl, trackKeys: opts.TrackKeys}
}

func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(ev.Key); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			pipe.Expire(ctx, keyKey, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

var _ StatsStore = (*RedisStats)(nil)
