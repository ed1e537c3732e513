package cache

import (
	"context"
	"os"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const redisOpTimeout = 500 * time.Millisecond

// Redis adapts a redis client to the Store interface. Values are opaque
// bytes; callers serialize with Encode/Decode.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewAuto returns a redis-backed store when REDIS_ADDR is set, otherwise
// an in-process memory cache bounded to maxEntries.
func NewAuto(maxEntries int) Store {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		log.Info().Str("addr", addr).Msg("Using redis cache store")
		return NewRedis(redis.NewClient(&redis.Options{Addr: addr}))
	}
	return NewMemory(maxEntries)
}

func (r *Redis) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

func (r *Redis) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis flush failed")
	}
}
