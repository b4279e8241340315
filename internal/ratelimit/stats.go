package ratelimit

import (
	"context"
	"sync"
	"time"
)

// StatsEvent describes one limiter decision.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// StatsStore records decisions. Callers treat failures as best-effort.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Counters tallies decisions.
type Counters struct {
	Allowed int64
	Denied  int64
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// MemoryStats keeps counters in process memory.
type MemoryStats struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

// NewMemoryStats creates an empty store; trackKeys enables per-client counters.
func NewMemoryStats(trackKeys bool) *MemoryStats {
	return &MemoryStats{
		byRoute:   make(map[string]Counters),
		byKey:     make(map[string]Counters),
		trackKeys: trackKeys,
	}
}

func (s *MemoryStats) Record(_ context.Context, ev StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byRoute[route]
	c.add(ev.Allowed)
	s.byRoute[route] = c

	if s.trackKeys {
		k := s.byKey[ev.Key]
		k.add(ev.Allowed)
		s.byKey[ev.Key] = k
	}
	return nil
}

// Total returns the overall counters.
func (s *MemoryStats) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByRoute returns a copy of the per-route counters.
func (s *MemoryStats) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

// ByKey returns a copy of the per-client counters.
func (s *MemoryStats) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}

var _ StatsStore = (*MemoryStats)(nil)
