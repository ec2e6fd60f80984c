package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"

	"github.com/redis/go-redis/v9"

	"github.com/mozilla/classify-client/internal/models"
)

// RedisStore implements Store over per-address attribution records in Redis.
// Records are written once by the load-redis tool and only read at request
// time.
//
// Key format: geo:<canonical address>
// Value: JSON-encoded models.Country
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to the Redis server at addr and verifies the
// connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &RedisStore{client: client, ctx: ctx}, nil
}

func attributionKey(addr netip.Addr) string {
	return "geo:" + addr.Unmap().String()
}

// FindCountry implements the Store interface.
func (s *RedisStore) FindCountry(addr netip.Addr) (*models.Country, error) {
	if !addr.IsValid() {
		return nil, ErrNotFound
	}

	val, err := s.client.Get(s.ctx, attributionKey(addr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("Redis attribution query failed: %w", err)
	}

	var country models.Country
	if err := json.Unmarshal([]byte(val), &country); err != nil {
		return nil, fmt.Errorf("decoding attribution record: %w", err)
	}

	return &country, nil
}

// Set writes an attribution record. Used by the load-redis tool and tests;
// the request path never calls it.
func (s *RedisStore) Set(addr netip.Addr, country models.Country) error {
	data, err := json.Marshal(country)
	if err != nil {
		return fmt.Errorf("encoding attribution record: %w", err)
	}

	if err := s.client.Set(s.ctx, attributionKey(addr), data, 0).Err(); err != nil {
		return fmt.Errorf("storing attribution record: %w", err)
	}

	return nil
}

// IsEmpty reports whether any attribution records exist.
func (s *RedisStore) IsEmpty() (bool, error) {
	keys, err := s.client.Keys(s.ctx, "geo:*").Result()
	if err != nil {
		return false, fmt.Errorf("checking Redis keys: %w", err)
	}
	return len(keys) == 0, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
