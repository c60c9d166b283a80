package securestore

import (
	"sync"
	"time"
)

// maxConsecutiveFailures is the spec §4.3 decrypt-failure threshold that
// triggers a lockout.
const maxConsecutiveFailures = 5

// lockoutWindow is the spec §4.3 default bounded lockout interval.
const lockoutWindow = 5 * time.Minute

// backoffCap is the spec §4.3 progressive-backoff ceiling.
const backoffCap = 60 * time.Second

// FailureLimiter enforces spec §4.3's rate limiting: after 5 consecutive
// decrypt failures the store locks out for a bounded interval, with
// progressive per-attempt backoff (1s, 2s, 4s, ... capped at 60s). A
// successful decrypt resets the counter.
type FailureLimiter struct {
	mu            sync.Mutex
	failures      int
	lockedUntil   time.Time
	lastAttemptAt time.Time
}

// NewFailureLimiter returns a limiter with a clean slate.
func NewFailureLimiter() *FailureLimiter {
	return &FailureLimiter{}
}

// Backoff returns how long the caller must wait before the next attempt:
// zero if no wait is required, otherwise the progressive backoff delay
// (while under the failure threshold) or the remaining lockout duration
// once the threshold has been reached.
func (l *FailureLimiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.failures >= maxConsecutiveFailures {
		if now.Before(l.lockedUntil) {
			return l.lockedUntil.Sub(now)
		}
		return 0
	}
	if l.failures == 0 {
		return 0
	}

	delay := 1 << uint(l.failures-1) // 1, 2, 4, 8, ... seconds
	d := time.Duration(delay) * time.Second
	if d > backoffCap {
		d = backoffCap
	}
	elapsed := now.Sub(l.lastAttemptAt)
	if elapsed >= d {
		return 0
	}
	return d - elapsed
}

// RecordFailure increments the consecutive-failure counter and, once the
// threshold is reached, opens a lockoutWindow.
func (l *FailureLimiter) RecordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures++
	l.lastAttemptAt = time.Now()
	if l.failures >= maxConsecutiveFailures {
		l.lockedUntil = l.lastAttemptAt.Add(lockoutWindow)
	}
}

// RecordSuccess resets the counter, per spec §4.3 ("successful decrypt
// resets the counter").
func (l *FailureLimiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
	l.lockedUntil = time.Time{}
}

// Locked reports whether the limiter is currently within a lockout window.
func (l *FailureLimiter) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures >= maxConsecutiveFailures && time.Now().Before(l.lockedUntil)
}
