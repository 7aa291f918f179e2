package cache

import (
	"context"
	"sync"
	"time"
)

// MemCache is a simple in-memory cache backed by sync.Map.
// Items can have optional TTL. A background cleanup goroutine
// runs when NewMemCache is given a positive cleanupInterval.
type MemCache struct {
	items sync.Map
	stop  chan struct{}
	wg    sync.WaitGroup
}

type item struct {
	value      []byte
	expiration int64 // unix nano; 0 means no expiration
}

// NewMemCache creates a new MemCache. If cleanupInterval > 0,
// a background goroutine will periodically remove expired items.
func NewMemCache(cleanupInterval time.Duration) *MemCache {
	m := &MemCache{
		stop: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			defer m.wg.Done()
			for {
				select {
				case <-ticker.C:
					m.cleanup()
				case <-m.stop:
					return
				}
			}
		}()
	}
	return m
}

func (m *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	m.items.Store(key, &item{
		value:      value,
		expiration: exp,
	})
}

func (m *MemCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.isExpired() {
		m.items.Delete(key)
		return nil, false
	}
	return it.value, true
}

func (m *MemCache) Delete(_ context.Context, key string) {
	m.items.Delete(key)
}

func (m *MemCache) Close() error {
	if m.stop == nil {
		return nil
	}
	close(m.stop)
	m.wg.Wait()
	return nil
}

func (it *item) isExpired() bool {
	if it == nil || it.expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > it.expiration
}

func (m *MemCache) cleanup() {
	now := time.Now().UnixNano()
	m.items.Range(func(k, v any) bool {
		it := v.(*item)
		if it.expiration != 0 && now > it.expiration {
			m.items.Delete(k)
		}
		return true
	})
}
