package alerting

import (
	"sync"
	"time"
)

// HealthOptions tune the degradation tracker.
type HealthOptions struct {
	FailureThreshold int
	Cooldown         time.Duration
}

type streak struct {
	failures  int
	since     time.Time
	lastAlert time.Time
}

// HealthTracker counts consecutive failures per provider and decides when an
// alert is due. A success resets the streak; alerts for the same provider are
// spaced by at least the cooldown.
type HealthTracker struct {
	mu      sync.Mutex
	opts    HealthOptions
	streaks map[string]*streak
	now     func() time.Time
}

// NewHealthTracker builds a tracker. A threshold below one is treated as one.
func NewHealthTracker(opts HealthOptions, now func() time.Time) *HealthTracker {
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 1
	}
	if now == nil {
		now = time.Now
	}
	return &HealthTracker{opts: opts, streaks: make(map[string]*streak), now: now}
}

// RecordSuccess clears the failure streak for provider.
func (h *HealthTracker) RecordSuccess(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streaks[provider]; ok {
		s.failures = 0
		s.since = time.Time{}
	}
}

// RecordFailure extends the streak and returns a notification when one should
// be sent.
func (h *HealthTracker) RecordFailure(provider, errMsg, isbn, sourceURL string) (Notification, bool) {
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streaks[provider]
	if !ok {
		s = &streak{}
		h.streaks[provider] = s
	}
	if s.failures == 0 {
		s.since = now
	}
	s.failures++

	if s.failures < h.opts.FailureThreshold {
		return Notification{}, false
	}
	if !s.lastAlert.IsZero() && now.Sub(s.lastAlert) < h.opts.Cooldown {
		return Notification{}, false
	}
	s.lastAlert = now

	return Notification{
		Provider:            provider,
		ConsecutiveFailures: s.failures,
		LastError:           errMsg,
		LastISBN:            isbn,
		LastSourceURL:       sourceURL,
		Since:               s.since,
		At:                  now,
	}, true
}

// Failures reports the current streak length for provider.
func (h *HealthTracker) Failures(provider string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streaks[provider]; ok {
		return s.failures
	}
	return 0
}
