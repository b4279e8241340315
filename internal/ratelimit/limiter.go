package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = 10 * time.Minute
	// DefaultMax is the number of requests a client may make per window.
	DefaultMax = 60
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per client key inside a resetting window. Windows are
// created on a client's first request and restart once the current time is
// more than one window length past their start. Denied calls still count.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	length  time.Duration
	max     int
	now     func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter. Non-positive arguments select the defaults.
func New(length time.Duration, max int, opts ...Option) *Limiter {
	if length <= 0 {
		length = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	l := &Limiter{
		windows: make(map[string]*window),
		length:  length,
		max:     max,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether key may make another request now.
func (l *Limiter) Allow(key string) bool {
	return l.Decide(key).Allowed
}

// Decide records a request for key and returns the full decision.
func (l *Limiter) Decide(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now}
		l.windows[key] = w
	}
	if now.Sub(w.start) > l.length {
		w.start = now
		w.count = 0
	}
	w.count++

	remaining := l.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   w.start.Add(l.length),
	}
}

// Prune drops windows that would be reset on their next request anyway and
// returns how many were removed.
func (l *Limiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, w := range l.windows {
		if now.Sub(w.start) > l.length {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.length }

// Max returns the per-window request budget.
func (l *Limiter) Max() int { return l.max }
