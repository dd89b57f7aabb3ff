package holiday

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"metargb/transfusion-service/internal/eligibility"
	"metargb/transfusion-service/pkg/logger"
)

// Cache is the subset of the Redis client used for holiday feeds.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource serves a wrapped source from Redis while the cached copy is
// fresh. Cache failures fall through to the wrapped source.
type CachedSource struct {
	source Source
	cache  Cache
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedSource wraps source with a Redis cache entry that expires after ttl.
func NewCachedSource(source Source, cache Cache, ttl time.Duration, log *logger.Logger) *CachedSource {
	if log == nil {
		log = logger.Discard()
	}
	return &CachedSource{source: source, cache: cache, ttl: ttl, log: log}
}

func (s *CachedSource) Name() string {
	return s.source.Name()
}

func (s *CachedSource) key() string {
	return "holidays:" + s.source.Name()
}

func (s *CachedSource) FetchAll(ctx context.Context) ([]eligibility.Record, error) {
	entry := s.log.WithField("source", s.Name())

	val, err := s.cache.Get(ctx, s.key()).Result()
	switch {
	case err == nil:
		records, decodeErr := eligibility.DecodeRecords([]byte(val))
		if decodeErr == nil {
			entry.Debug("holiday feed served from cache")
			return records, nil
		}
		entry.WithField("error", decodeErr.Error()).Warn("discarding unreadable cached holiday feed")
	case errors.Is(err, redis.Nil):
	default:
		entry.WithField("error", err.Error()).Warn("holiday cache unavailable")
	}

	records, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := eligibility.EncodeRecords(records)
	if err != nil {
		return records, nil
	}
	if err := s.cache.Set(ctx, s.key(), payload, s.ttl).Err(); err != nil {
		entry.WithFields(logrus.Fields{"error": err.Error()}).Warn("failed to cache holiday feed")
	}

	return records, nil
}
