// Package cache provides a key/value store with TTLs and explicit key
// derivation, backed by memory or Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"
)

// Store is a JSON value cache.
type Store interface {
	// Get decodes the value for key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key. A zero ttl uses the store default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Stats() StatsSnapshot
	Close() error
}

// Key joins namespace segments with ':' and appends a SHA-256 digest of the
// dependent fields, so any change in a field yields a different key.
func Key(namespace []string, fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return Prefix(namespace...) + hex.EncodeToString(h.Sum(nil))[:32]
}

// Prefix returns the key prefix shared by all keys under namespace.
func Prefix(namespace ...string) string {
	return strings.Join(namespace, ":") + ":"
}

// Stats tracks cache statistics.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Sets    uint64
	Deletes uint64
	Errors  uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Sets      uint64  `json:"sets"`
	Deletes   uint64  `json:"deletes"`
	Errors    uint64  `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
	TotalGets uint64  `json:"total_gets"`
}

func (s *Stats) snapshot() StatsSnapshot {
	hits := atomic.LoadUint64(&s.Hits)
	misses := atomic.LoadUint64(&s.Misses)
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return StatsSnapshot{
		Hits:      hits,
		Misses:    misses,
		Sets:      atomic.LoadUint64(&s.Sets),
		Deletes:   atomic.LoadUint64(&s.Deletes),
		Errors:    atomic.LoadUint64(&s.Errors),
		HitRate:   hitRate,
		TotalGets: total,
	}
}
