package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters for a Redis/Valkey server.
type RedisConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// RedisProvider implements Provider on top of go-redis.
type RedisProvider struct {
	client *redis.Client
}

// NewRedisProvider connects and pings the server so misconfiguration fails fast.
func NewRedisProvider(cfg RedisConfig) (*RedisProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisProvider{client: client}, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return value, err
}

// Set stores bytes with the provided TTL. A non-positive ttl never expires.
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.client.Set(ctx, key, value, normaliseTTL(ttl)).Err()
}

// SetNX stores bytes only when the key does not exist.
func (p *RedisProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.client.SetNX(ctx, key, value, normaliseTTL(ttl)).Result()
}

// Del removes key.
func (p *RedisProvider) Del(ctx context.Context, key string) error {
	return p.client.Del(ctx, key).Err()
}

// Close releases the connection pool.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func normaliseTTL(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
