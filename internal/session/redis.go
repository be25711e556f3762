// Package session stores login sessions in Redis, one key per user, each
// expiring on its own TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"securestack.dev/internal/auth"
)

const defaultPrefix = "session"

var _ auth.SessionRegistry = (*RedisRegistry)(nil)

// RedisRegistry implements auth.SessionRegistry. It keeps no local state;
// every call is a round trip to Redis.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry returns a registry writing keys under prefix (default "session").
func NewRedisRegistry(client *redis.Client, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisRegistry{client: client, prefix: prefix}
}

// Put stores or replaces the session for userID.
func (r *RedisRegistry) Put(ctx context.Context, userID int64, s auth.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session: ttl must be positive")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.client.Set(ctx, r.key(userID), data, ttl).Err()
}

// Get returns the live session for userID, if any. A corrupt record is
// removed and reported as absent.
func (r *RedisRegistry) Get(ctx context.Context, userID int64) (auth.Session, bool, error) {
	key := r.key(userID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return auth.Session{}, false, nil
	} else if err != nil {
		return auth.Session{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var s auth.Session
	if err := json.Unmarshal(data, &s); err != nil {
		r.client.Del(ctx, key)
		return auth.Session{}, false, nil
	}
	return s, true, nil
}

// Delete removes the session for userID. Missing keys are not an error.
func (r *RedisRegistry) Delete(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *RedisRegistry) key(userID int64) string {
	return r.prefix + ":" + strconv.FormatInt(userID, 10)
}
