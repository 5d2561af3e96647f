package fragment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps fragments in Redis under frag:<connection>:<index> keys.
// TTLs are enforced by Redis itself; expired entries simply stop resolving.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(connID string, index int) string {
	return fmt.Sprintf("frag:%s:%d", connID, index)
}

func (s *RedisStore) Put(ctx context.Context, connID string, index int, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(connID, index), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set fragment: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, connID string, index int) ([]byte, error) {
	val, err := s.client.Get(ctx, key(connID, index)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get fragment: %w", err)
	}
	return val, nil
}

func (s *RedisStore) List(ctx context.Context, connID string) ([]Fragment, error) {
	pattern := fmt.Sprintf("frag:%s:*", connID)
	var out []Fragment
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan fragments: %w", err)
		}
		for _, k := range keys {
			idx, ok := indexFromKey(k)
			if !ok || idx < 1 {
				continue
			}
			val, err := s.client.Get(ctx, k).Bytes()
			if err == redis.Nil {
				continue // lapsed between scan and read
			}
			if err != nil {
				return nil, fmt.Errorf("redis get fragment: %w", err)
			}
			out = append(out, Fragment{ConnectionID: connID, Index: idx, Payload: val})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func indexFromKey(k string) (int, bool) {
	i := strings.LastIndexByte(k, ':')
	if i < 0 {
		return 0, false
	}
	idx, err := strconv.Atoi(k[i+1:])
	if err != nil {
		return 0, false
	}
	return idx, true
}
