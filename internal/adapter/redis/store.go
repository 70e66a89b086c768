package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements geocache.Store on a single Redis hash so several service
// instances can share one geocode cache. Field = place name, value = JSON
// coordinate or "null".
type Store struct {
	client goredis.UniversalClient
	key    string
}

// NewStore wraps an existing client.
func NewStore(client goredis.UniversalClient, key string) *Store {
	return &Store{client: client, key: key}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, key string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewStore(client, key), nil
}

// Load reads every field of the hash. Undecodable fields are skipped so one
// bad value cannot empty the whole cache.
func (s *Store) Load(ctx context.Context) (map[string]domain.Resolution, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}

	entries := make(map[string]domain.Resolution, len(fields))
	for name, raw := range fields {
		var r domain.Resolution
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		entries[name] = r
	}
	return entries, nil
}

// Save writes successes with HSET and absents with HSETNX, so an absent from
// this instance never replaces a success written by another one.
func (s *Store) Save(ctx context.Context, entries map[string]domain.Resolution) error {
	if len(entries) == 0 {
		return nil
	}

	found := make([]any, 0, len(entries)*2)
	pipe := s.client.TxPipeline()
	for name, r := range entries {
		if !r.Found {
			pipe.HSetNX(ctx, s.key, name, "null")
			continue
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %q: %w", name, err)
		}
		found = append(found, name, string(data))
	}
	if len(found) > 0 {
		pipe.HSet(ctx, s.key, found...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", s.key, err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
