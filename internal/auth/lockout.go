package auth

import (
	"strings"
	"sync"
	"time"
)

// Lockout counts failed sign-ins per email and blocks further attempts for
// a fixed period once the limit is reached.
type Lockout struct {
	MaxAttempts int
	Duration    time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

type lockoutEntry struct {
	failures    int
	lockedUntil time.Time
}

// NewLockout creates a lockout that allows maxAttempts failures before
// locking for d.
func NewLockout(maxAttempts int, d time.Duration) *Lockout {
	return &Lockout{MaxAttempts: maxAttempts, Duration: d}
}

func (l *Lockout) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func lockoutKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Locked reports whether email is locked out and for how much longer.
// An expired lockout is cleared.
func (l *Lockout) Locked(email string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[lockoutKey(email)]
	if !ok || e.lockedUntil.IsZero() {
		return false, 0
	}

	remaining := e.lockedUntil.Sub(l.now())
	if remaining <= 0 {
		delete(l.entries, lockoutKey(email))
		return false, 0
	}
	return true, remaining
}

// Fail records a failed attempt. It returns the attempts left before a
// lockout, and the lockout length if this attempt triggered one.
func (l *Lockout) Fail(email string) (remaining int, lockedFor time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries == nil {
		l.entries = make(map[string]*lockoutEntry)
	}

	key := lockoutKey(email)
	e, ok := l.entries[key]
	if !ok {
		e = &lockoutEntry{}
		l.entries[key] = e
	}

	e.failures++
	if e.failures >= l.MaxAttempts {
		e.lockedUntil = l.now().Add(l.Duration)
		return 0, l.Duration
	}
	return l.MaxAttempts - e.failures, 0
}

// Reset clears the failure count after a successful sign-in.
func (l *Lockout) Reset(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, lockoutKey(email))
}
