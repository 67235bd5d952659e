// Package cache stores short-lived byte values such as metadata lookup results.
package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/config"
)

// Cache is implemented by the in-memory and Redis backends.
// A miss is reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New picks Redis when REDIS_URL is configured and reachable, memory otherwise.
func New(ctx context.Context, cfg config.Cache) Cache {
	if cfg.RedisURL == "" {
		return NewMemory(time.Minute)
	}

	redisCache, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, falling back to in-memory cache")
		return NewMemory(time.Minute)
	}
	logrus.Info("using redis lookup cache")
	return redisCache
}
