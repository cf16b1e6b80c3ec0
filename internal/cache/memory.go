package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (item memoryItem) expired(now time.Time) bool {
	return !item.expiration.IsZero() && now.After(item.expiration)
}

// MemoryCache 是进程内缓存，过期项在读取或写入时清理。
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (m *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if item.expired(m.now()) {
		delete(m.items, key)
		return nil, false, nil
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, existing := range m.items {
		if existing.expired(now) {
			delete(m.items, k)
		}
	}

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = now.Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}
