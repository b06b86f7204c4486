package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
)

const defaultRedisAddress = "localhost:6379"

// RedisOptions locates the Redis server backing the shared tier.
type RedisOptions struct {
	Address  string
	Password string
	Database int
}

// ConnectRedis opens a client and checks it answers.
func ConnectRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	address := opts.Address
	if address == "" {
		address = defaultRedisAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: opts.Password,
		DB:       opts.Database,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", address, err)
	}
	return client, nil
}

// RedisTier stores JSON-encoded values in Redis under a key prefix.
type RedisTier[V any] struct {
	cache  *gocache.Cache[string]
	prefix string
}

// NewRedisTier wraps client. ttl is the default expiration for writes that
// don't pass one.
func NewRedisTier[V any](client *redis.Client, prefix string, ttl time.Duration) *RedisTier[V] {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &RedisTier[V]{
		cache:  gocache.New[string](redisStore),
		prefix: prefix,
	}
}

// Get implements Tier.
func (t *RedisTier[V]) Get(ctx context.Context, key string) (Item[V], bool, error) {
	var item Item[V]

	raw, err := t.cache.Get(ctx, t.prefix+key)
	if err != nil {
		var notFound *store.NotFound
		if errors.As(err, &notFound) || errors.Is(err, redis.Nil) {
			return item, false, nil
		}
		return item, false, err
	}
	if raw == "" {
		return item, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return item, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return item, true, nil
}

// Set implements Tier.
func (t *RedisTier[V]) Set(ctx context.Context, key string, item Item[V], ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	return t.cache.Set(ctx, t.prefix+key, string(data), store.WithExpiration(ttl))
}
