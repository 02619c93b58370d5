package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily on
// read and periodically by a janitor goroutine stopped by Close.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	stats      Stats
	now        func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryStore creates a MemoryStore that sweeps expired entries every interval.
func NewMemoryStore(defaultTTL, interval time.Duration) *MemoryStore {
	m := &MemoryStore{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go m.janitor(interval)
	return m
}

func (m *MemoryStore) janitor(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || (!e.expiresAt.IsZero() && m.now().After(e.expiresAt)) {
		atomic.AddUint64(&m.stats.Misses, 1)
		return false, nil
	}

	if err := json.Unmarshal(e.data, dest); err != nil {
		atomic.AddUint64(&m.stats.Errors, 1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&m.stats.Hits, 1)
	return true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		atomic.AddUint64(&m.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}

	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()

	atomic.AddUint64(&m.stats.Sets, 1)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	atomic.AddUint64(&m.stats.Deletes, 1)
	return nil
}

func (m *MemoryStore) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	var n uint64
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	m.mu.Unlock()
	atomic.AddUint64(&m.stats.Deletes, n)
	return nil
}

func (m *MemoryStore) Stats() StatsSnapshot {
	return m.stats.snapshot()
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor and waits for it to exit.
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		close(m.stop)
		<-m.done
	})
	return nil
}
