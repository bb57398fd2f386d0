package telemetry

import (
	"context"
	"sync/atomic"
	"time"
)

// CacheStats counts exposition cache hits and misses. It is safe for
// concurrent use across sessions. Each instance is independent, so tests
// can assert on their own counters.
type CacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
}

var _ Recorder = (*CacheStats)(nil)

// NewCacheStats returns zeroed counters.
func NewCacheStats() *CacheStats {
	return &CacheStats{}
}

// CacheSnapshot is a point-in-time copy of the counters.
type CacheSnapshot struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"` // percent, 0 when no lookups
}

func (c *CacheStats) RecordCacheLookup(_ context.Context, _ int64, hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *CacheStats) RecordNodeExecution(_ context.Context, _ string, _ time.Duration, _ error) {}

func (c *CacheStats) RecordTurn(_ context.Context, _ int, _ bool, _ time.Duration) {}

// Snapshot returns the current counters.
func (c *CacheStats) Snapshot() CacheSnapshot {
	s := CacheSnapshot{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// Reset zeroes the counters.
func (c *CacheStats) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}
