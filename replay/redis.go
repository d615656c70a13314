package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitalvas/signedrequests/signedreq"
)

var (
	// ErrNoRedisAddr is returned by DialRedis when RedisConfig.Addr is empty.
	ErrNoRedisAddr = errors.New("replay: redis address must not be empty")
)

var _ signedreq.AtomicReplayCache = (*Redis)(nil)

// RedisConfig configures DialRedis.
type RedisConfig struct {
	// Addr is the host:port of the Redis server. Required.
	Addr string

	// Username and Password authenticate the connection when set.
	Username string
	Password string

	// DB selects the database.
	DB int

	// KeyPrefix is prepended to every key, on top of the profile cache
	// prefix.
	KeyPrefix string

	// DialTimeout bounds the initial ping. Defaults to 5 seconds.
	DialTimeout time.Duration
}

// Redis is a replay cache shared between instances through Redis.
type Redis struct {
	client    redis.Cmdable
	keyPrefix string
	closer    func() error
}

// NewRedis wraps an existing client. The caller keeps ownership of client.
func NewRedis(client redis.Cmdable, keyPrefix string) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, ErrNoRedisAddr
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("replay: connecting to redis at %s: %w", cfg.Addr, err)
	}

	r := NewRedis(client, cfg.KeyPrefix)
	r.closer = client.Close

	return r, nil
}

// Has reports whether key exists.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keyPrefix+key).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// Put stores key for ttl. A non-positive ttl never expires.
func (r *Redis) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+key, value, redisTTL(ttl)).Err()
}

// PutIfAbsent stores key for ttl with SET NX.
func (r *Redis) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.keyPrefix+key, value, redisTTL(ttl)).Result()
}

// Close closes the client opened by DialRedis. It is a no-op for caches
// created with NewRedis.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer()
}

func redisTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}

	return ttl
}
