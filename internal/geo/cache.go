package geo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nitesh/news_near_me/internal/metrics"
	"github.com/nitesh/news_near_me/pkg/models"
)

// Resolver is anything that can turn an IP into a Location.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (models.Location, error)
}

// CachedResolver keeps successful lookups in Redis. Redis errors degrade to a direct lookup.
type CachedResolver struct {
	next Resolver
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
}

func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedResolver {
	return &CachedResolver{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(ip string) string {
	if ip == "" {
		return "geo:self"
	}
	return "geo:" + ip
}

func (c *CachedResolver) Resolve(ctx context.Context, ip string) (models.Location, error) {
	key := cacheKey(ip)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var loc models.Location
		if uerr := json.Unmarshal(raw, &loc); uerr == nil {
			metrics.GeoCacheLookups.WithLabelValues("hit").Inc()
			return loc, nil
		}
		c.log.Warn("geo cache entry corrupt", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("geo cache read failed", slog.String("key", key), slog.Any("err", err))
	}
	metrics.GeoCacheLookups.WithLabelValues("miss").Inc()

	loc, err := c.next.Resolve(ctx, ip)
	if err != nil {
		return models.Location{}, err
	}

	if b, merr := json.Marshal(loc); merr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Warn("geo cache write failed", slog.String("key", key), slog.Any("err", serr))
		}
	}
	return loc, nil
}
