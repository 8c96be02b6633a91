package collector

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log"
	"time"

	"SwingScanner/internal/cache"
	"SwingScanner/internal/model"
)

// CachedProvider is a read-through cache in front of another provider.
// Entries are keyed by provider, symbol, lookback, interval and calendar day.
type CachedProvider struct {
	Inner Provider
	Store cache.Store
	TTL   time.Duration

	now func() time.Time
}

// NewCachedProvider wraps inner with store. A non-positive ttl defaults to 12h.
func NewCachedProvider(inner Provider, store cache.Store, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CachedProvider{Inner: inner, Store: store, TTL: ttl, now: time.Now}
}

func (p *CachedProvider) Name() string { return p.Inner.Name() }

func (p *CachedProvider) key(symbol, lookback, interval string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", p.Inner.Name(), symbol, lookback, interval, p.now().Format(time.DateOnly))
}

// FetchHistory serves from the store when possible. Every hit is decoded into a
// fresh RawHistory, so callers never share state with the cache.
func (p *CachedProvider) FetchHistory(ctx context.Context, symbol, lookback, interval string) (*model.RawHistory, error) {
	key := p.key(symbol, lookback, interval)

	payload, ok, err := p.Store.Get(ctx, key)
	if err != nil {
		log.Printf("[WARN] cache read %s: %v", key, err)
	}
	if ok {
		var raw model.RawHistory
		err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&raw)
		if err == nil {
			return &raw, nil
		}
		log.Printf("[WARN] cache decode %s: %v, refetching", key, err)
	}

	raw, err := p.Inner.FetchHistory(ctx, symbol, lookback, interval)
	if err != nil {
		return nil, err
	}
	if len(raw.Dates) == 0 {
		return raw, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(raw); err != nil {
		log.Printf("[WARN] cache encode %s: %v", key, err)
		return raw, nil
	}
	if err := p.Store.Put(ctx, key, buf.Bytes(), p.TTL); err != nil {
		log.Printf("[WARN] cache write %s: %v", key, err)
	}
	return raw, nil
}
