// Package stats serves the user-count statistics document with a Redis
// cache-aside in front of Postgres.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	cacheKey   = "stats"
	DefaultTTL = 60 * time.Second
)

// Stats is the cached document.
type Stats struct {
	UserCount int64     `json:"userCount"`
	Timestamp time.Time `json:"timestamp"`
}

// Counter reports the current number of users.
type Counter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// Service computes and caches Stats.
type Service struct {
	counter Counter
	cache   *redis.Client
	ttl     time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewService wires a counter to a cache. A non-positive ttl selects DefaultTTL.
func NewService(counter Counter, cache *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{counter: counter, cache: cache, ttl: ttl, now: time.Now, log: log}
}

// Get returns cached stats when present, otherwise recomputes and caches them.
// Cache failures degrade to a direct database read.
func (s *Service) Get(ctx context.Context) (Stats, bool, error) {
	if st, ok := s.cached(ctx); ok {
		return st, true, nil
	}

	n, err := s.counter.CountUsers(ctx)
	if err != nil {
		return Stats{}, false, fmt.Errorf("count users: %w", err)
	}
	st := Stats{UserCount: n, Timestamp: s.now().UTC()}

	data, err := json.Marshal(st)
	if err == nil {
		err = s.cache.Set(ctx, cacheKey, data, s.ttl).Err()
	}
	if err != nil {
		s.log.WithError(err).Warn("stats cache write failed")
	}
	return st, false, nil
}

// Invalidate drops the cached document so the next Get recomputes it.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Del(ctx, cacheKey).Err()
}

func (s *Service) cached(ctx context.Context) (Stats, bool) {
	data, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		return Stats{}, false
	} else if err != nil {
		s.log.WithError(err).Warn("stats cache read failed")
		return Stats{}, false
	}
	var st Stats
	if err := json.Unmarshal(data, &st); err != nil {
		s.cache.Del(ctx, cacheKey)
		return Stats{}, false
	}
	return st, true
}
