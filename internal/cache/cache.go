// Package cache memoises aggregated quotes in process memory.
//
// Entries live for a fixed TTL from the moment they are written. Expired
// entries are reported as misses but stay in the map until the next Put for
// the same identifier replaces them; nothing survives a restart.
package cache

import (
	"sync"
	"time"

	"buyback-quotes/internal/quote"
)

// DefaultTTL is how long an aggregated quote is served from memory.
const DefaultTTL = 48 * time.Hour

// QuoteStore is the read/write contract the lookup service depends on.
type QuoteStore interface {
	Get(isbn string) (quote.Aggregated, bool)
	Put(isbn string, q quote.Aggregated)
}

type entry struct {
	value     quote.Aggregated
	expiresAt time.Time
}

// Memory is a mutex-guarded map keyed by canonical identifier.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option customises a Memory cache.
type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty cache; a non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the stored quote unless it is absent or expired.
func (m *Memory) Get(isbn string) (quote.Aggregated, bool) {
	m.mu.RLock()
	e, ok := m.entries[isbn]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		return quote.Aggregated{}, false
	}
	return e.value, true
}

// Put stores q, replacing any previous entry. Last write wins.
func (m *Memory) Put(isbn string, q quote.Aggregated) {
	expires := m.now().Add(m.ttl)

	m.mu.Lock()
	m.entries[isbn] = entry{value: q, expiresAt: expires}
	m.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// TTL returns the configured time-to-live.
func (m *Memory) TTL() time.Duration {
	return m.ttl
}

var _ QuoteStore = (*Memory)(nil)
