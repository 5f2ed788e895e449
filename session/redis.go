package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the record under three keys sharing one namespace:
//
//	<prefix>:<namespace>:access
//	<prefix>:<namespace>:refresh
//	<prefix>:<namespace>:user
//
// Save writes all three in one MULTI/EXEC, Clear removes them with one DEL.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	namespace string
	ttl       time.Duration
}

// NewRedisStore creates a store on client. namespace separates records of
// different client profiles sharing one Redis; ttl of zero means no expiry.
func NewRedisStore(client redis.UniversalClient, prefix, namespace string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "sg"
	}
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *RedisStore) keys() (access, refresh, user string) {
	base := s.prefix + ":" + s.namespace + ":"
	return base + "access", base + "refresh", base + "user"
}

// Load fetches the three keys with one MGET.
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	access, refresh, user := s.keys()

	vals, err := s.redis.MGet(ctx, access, refresh, user).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) != 3 {
		return Record{}, ErrCorrupt
	}

	var rec Record
	rec.AccessToken = slotString(vals[0])
	rec.RefreshToken = slotString(vals[1])
	if u := slotString(vals[2]); u != "" {
		rec.User = []byte(u)
	}
	return rec.check()
}

// Save writes every slot atomically.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if !rec.Complete() {
		return ErrIncomplete
	}
	access, refresh, user := s.keys()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, access, rec.AccessToken, s.ttl)
		pipe.Set(ctx, refresh, rec.RefreshToken, s.ttl)
		pipe.Set(ctx, user, rec.User, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes every slot. Deleting absent keys is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	access, refresh, user := s.keys()
	if err := s.redis.Del(ctx, access, refresh, user).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func slotString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
