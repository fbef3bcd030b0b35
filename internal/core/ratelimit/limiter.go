// Package ratelimit implements an in-memory fixed-window attempt counter
// with an escalating block once the window budget is exhausted.
//
// State is process-local and never shared across instances. That is an
// accepted tradeoff: the limiter is an abuse deterrent, not a security
// boundary, and entries are lost on restart.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Config describes one limiter instance.
type Config struct {
	Window      time.Duration
	MaxAttempts int
	BlockFor    time.Duration
}

// Named configurations used by the application.
var (
	LoginLimit  = Config{Window: 15 * time.Minute, MaxAttempts: 5, BlockFor: time.Hour}
	CreateLimit = Config{Window: time.Minute, MaxAttempts: 10, BlockFor: 5 * time.Minute}
	UpdateLimit = Config{Window: time.Minute, MaxAttempts: 20, BlockFor: 3 * time.Minute}
	DeleteLimit = Config{Window: time.Minute, MaxAttempts: 5, BlockFor: 10 * time.Minute}
)

// LimitExceededError reports a rejected attempt. It is expected and
// user-recoverable after RetryAfterSeconds; callers surface it as a message,
// never as a server fault.
type LimitExceededError struct {
	RetryAfterSeconds int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %ds", e.RetryAfterSeconds)
}

// Result is the outcome of a Check call.
type Result struct {
	Allowed           bool `json:"allowed"`
	RetryAfterSeconds int  `json:"retry_after_seconds,omitempty"`
	Remaining         int  `json:"remaining_attempts"`
}

// AttemptInfo is a read-only snapshot of an identifier's window.
type AttemptInfo struct {
	Attempts  int `json:"attempts"`
	Remaining int `json:"remaining_attempts"`
}

type entry struct {
	count        int
	windowStart  time.Time
	blockedUntil *time.Time
}

// Limiter tracks attempts per identifier under a single Config.
//
// Check performs a read-then-write sequence, so all access goes through one
// mutex; two concurrent callers must not both observe count under the limit.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	clock   func() time.Time
}

// New creates a limiter for the given configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// NewWithClock creates a limiter with an injected time source for tests.
func NewWithClock(cfg Config, clock func() time.Time) *Limiter {
	l := New(cfg)
	if clock != nil {
		l.clock = clock
	}
	return l
}

// Check records an attempt for identifier and reports whether it is allowed.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	e, ok := l.entries[identifier]
	if !ok {
		l.entries[identifier] = &entry{count: 1, windowStart: now}
		return Result{Allowed: true, Remaining: l.cfg.MaxAttempts - 1}
	}

	if e.blockedUntil != nil {
		if now.Before(*e.blockedUntil) {
			retry := int(math.Ceil(e.blockedUntil.Sub(now).Seconds()))
			return Result{Allowed: false, RetryAfterSeconds: retry, Remaining: 0}
		}
		// Block elapsed; treat as never seen.
		l.entries[identifier] = &entry{count: 1, windowStart: now}
		return Result{Allowed: true, Remaining: l.cfg.MaxAttempts - 1}
	}

	if now.Sub(e.windowStart) > l.cfg.Window {
		l.entries[identifier] = &entry{count: 1, windowStart: now}
		return Result{Allowed: true, Remaining: l.cfg.MaxAttempts - 1}
	}

	e.count++
	if e.count > l.cfg.MaxAttempts {
		until := now.Add(l.cfg.BlockFor)
		e.blockedUntil = &until
		retry := int(math.Ceil(l.cfg.BlockFor.Seconds()))
		return Result{Allowed: false, RetryAfterSeconds: retry, Remaining: 0}
	}

	return Result{Allowed: true, Remaining: l.cfg.MaxAttempts - e.count}
}

// RecordSuccess clears the identifier's history, as if never attempted.
func (l *Limiter) RecordSuccess(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
}

// Info returns a snapshot for identifier, or nil if no entry exists.
func (l *Limiter) Info(identifier string) *AttemptInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		return nil
	}

	remaining := l.cfg.MaxAttempts - e.count
	if remaining < 0 {
		remaining = 0
	}
	return &AttemptInfo{Attempts: e.count, Remaining: remaining}
}

// Cleanup sweeps expired entries to bound memory. Intended to run on a
// periodic timer; it has no observable contract beyond reduced memory.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for id, e := range l.entries {
		if e.blockedUntil != nil {
			if !now.Before(*e.blockedUntil) {
				delete(l.entries, id)
			}
			continue
		}
		if now.Sub(e.windowStart) > l.cfg.Window {
			delete(l.entries, id)
		}
	}
}

// Len reports the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
