package cache

import (
	"context"
	"time"
)

// Store is a keyed byte cache with per-entry expiry.
type Store interface {
	// Get returns the payload for key, or false when missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Close() error
}

// NoopStore never holds anything; used when caching is disabled.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (NoopStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopStore) Put(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopStore) Close() error { return nil }
