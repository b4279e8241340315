package ratelimit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestLimiterAllowsUpToMaxThenDenies(t *testing.T) {
	clock := newClock()
	l := New(10*time.Minute, 60, WithClock(clock.Now))

	for i := 0; i < 60; i++ {
		require.True(t, l.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "other clients have their own window")
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	clock := newClock()
	l := New(10*time.Minute, 2, WithClock(clock.Now))

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// Exactly one window later is still the same window.
	clock.Advance(10 * time.Minute)
	assert.False(t, l.Allow("a"))

	clock.Advance(time.Second)
	d := l.Decide("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(10*time.Minute), d.ResetAt)
}

func TestLimiterDeniedRequestsStillCount(t *testing.T) {
	clock := newClock()
	l := New(time.Minute, 1, WithClock(clock.Now))

	assert.True(t, l.Allow("a"))
	for i := 0; i < 5; i++ {
		d := l.Decide("a")
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
	}
}

func TestLimiterPrune(t *testing.T) {
	clock := newClock()
	l := New(time.Minute, 5, WithClock(clock.Now))

	l.Allow("old")
	clock.Advance(45 * time.Second)
	l.Allow("fresh")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 1, l.Len())
}

func TestLimiterDefaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultWindow, l.Window())
	assert.Equal(t, DefaultMax, l.Max())
}

func TestLimiterConcurrent(t *testing.T) {
	l := New(time.Hour, 100)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		xff     string
		remote  string
		trusted bool
		want    string
	}{
		{name: "first forwarded entry", xff: "203.0.113.7, 10.0.0.1", remote: "10.0.0.2:5555", trusted: true, want: "203.0.113.7"},
		{name: "forwarded ignored when untrusted", xff: "203.0.113.7", remote: "10.0.0.2:5555", trusted: false, want: "10.0.0.2"},
		{name: "blank forwarded falls back", xff: " , 1.1.1.1", remote: "10.0.0.2:5555", trusted: true, want: "10.0.0.2"},
		{name: "remote without port", remote: "10.0.0.3", trusted: true, want: "10.0.0.3"},
		{name: "nothing usable", remote: "", trusted: true, want: UnknownClient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/quote", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			assert.Equal(t, tc.want, ClientKey(r, tc.trusted))
		})
	}
}

func TestMemoryStats(t *testing.T) {
	s := NewMemoryStats(true)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, StatsEvent{Key: "a", Allowed: true, Method: "GET", Path: "/api/quote"}))
	require.NoError(t, s.Record(ctx, StatsEvent{Key: "a", Allowed: false, Method: "GET", Path: "/api/quote"}))
	require.NoError(t, s.Record(ctx, StatsEvent{Key: "b", Allowed: true, Method: "GET", Path: "/api/quote"}))

	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, s.Total())
	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, s.ByRoute()["GET /api/quote"])
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByKey()["a"])
}

func TestRedisStatsNilClientIsNoop(t *testing.T) {
	var s *RedisStats
	assert.NoError(t, s.Record(context.Background(), StatsEvent{Key: "a"}))
}
