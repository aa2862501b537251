package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "tour:distance:"

// RedisDistanceCache stores one hash per origin; each field is a destination
// key holding "units|seconds". Hashes expire after TTL when it is set.
type RedisDistanceCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisDistanceCache(client *redis.Client, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{Client: client, Prefix: defaultRedisPrefix, TTL: ttl}
}

func (c *RedisDistanceCache) key(origin string) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return prefix + origin
}

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.redis.GetMany")(&err)

	if c.Client == nil {
		return nil, errors.New("distance cache: redis client is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	vals, err := c.Client.HMGet(ctx, c.key(origin), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance cache: hmget: %w", err)
	}

	out := make(map[string]ports.DistanceResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeResult(s)
		if err != nil {
			return nil, fmt.Errorf("get distance cache: field %q: %w", uniq[i], err)
		}
		out[uniq[i]] = r
	}
	return out, nil
}

func (c *RedisDistanceCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) error {
	if c.Client == nil {
		return errors.New("distance cache: redis client is nil")
	}
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert distance cache: empty destination key")
		}
		fields[dest] = encodeResult(r)
	}

	key := c.key(origin)
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		if c.TTL > 0 {
			p.Expire(ctx, key, c.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert distance cache: %w", err)
	}
	return nil
}

func encodeResult(r ports.DistanceResult) string {
	return strconv.FormatFloat(r.Distance, 'g', -1, 64) + "|" + strconv.FormatInt(durationSeconds(r.Duration), 10)
}

func decodeResult(s string) (ports.DistanceResult, error) {
	units, secs, ok := strings.Cut(s, "|")
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("malformed value %q", s)
	}
	d, err := strconv.ParseFloat(units, 64)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("parse distance: %w", err)
	}
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("parse duration: %w", err)
	}
	return ports.DistanceResult{Distance: d, Duration: time.Duration(n) * time.Second}, nil
}
