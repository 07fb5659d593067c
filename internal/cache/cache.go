package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Provider is a byte-oriented cache shared by the upstream source adapters.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// GetJSON loads key and decodes it into out. It returns ErrCacheMiss when the
// key is absent or the provider is nil.
func GetJSON(ctx context.Context, p Provider, key string, out any) error {
	if p == nil {
		return ErrCacheMiss
	}
	data, err := p.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, p Provider, key string, value any, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.Set(ctx, key, data, ttl)
}

// NoopProvider never stores anything.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
