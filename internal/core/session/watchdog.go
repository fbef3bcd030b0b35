package session

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// IdleWatchdog forces a local sign-out after a period with no user
// interaction. It schedules a warning at timeout-warningLead and the forced
// sign-out at timeout; any qualifying interaction resets both.
//
// The watchdog is deliberately independent of the Heartbeat: the persisted
// record can stay fresh (another tab keeps beating) while this local clock
// still signs the idle tab out.
type IdleWatchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	warnLead time.Duration

	onWarn    func(remaining time.Duration)
	onTimeout func(reason core.SignOutReason)

	warnTimer *time.Timer
	outTimer  *time.Timer
	stopped   bool

	// gen invalidates callbacks already in flight when Reset or Stop races
	// a firing timer; timer.Stop cannot retract a callback that has started.
	gen uint64
}

// NewIdleWatchdog creates a watchdog. onWarn fires warnLead before the
// deadline; onTimeout fires at the deadline with the timeout reason. Call
// Start to arm it.
func NewIdleWatchdog(timeout, warnLead time.Duration, onWarn func(time.Duration), onTimeout func(core.SignOutReason)) *IdleWatchdog {
	return &IdleWatchdog{
		timeout:   timeout,
		warnLead:  warnLead,
		onWarn:    onWarn,
		onTimeout: onTimeout,
	}
}

// Start arms both timers. Only meaningful while a user is authenticated.
func (w *IdleWatchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = false
	w.armLocked()
}

// Reset is called on any qualifying user interaction (pointer, keyboard,
// scroll, touch, wheel, click). It cancels and reschedules both callbacks.
func (w *IdleWatchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.cancelLocked()
	w.armLocked()
}

// Stop clears both timers. Called on teardown or explicit sign-out.
func (w *IdleWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.cancelLocked()
}

func (w *IdleWatchdog) armLocked() {
	w.gen++
	gen := w.gen

	warnAfter := w.timeout - w.warnLead
	if warnAfter < 0 {
		warnAfter = 0
	}
	w.warnTimer = time.AfterFunc(warnAfter, func() { w.fireWarn(gen) })
	w.outTimer = time.AfterFunc(w.timeout, func() { w.fireTimeout(gen) })
}

func (w *IdleWatchdog) fireWarn(gen uint64) {
	w.mu.Lock()
	live := !w.stopped && gen == w.gen
	w.mu.Unlock()
	if live && w.onWarn != nil {
		w.onWarn(w.warnLead)
	}
}

func (w *IdleWatchdog) fireTimeout(gen uint64) {
	w.mu.Lock()
	if w.stopped || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.cancelLocked()
	w.mu.Unlock()
	if w.onTimeout != nil {
		w.onTimeout(core.SignOutIdleTimeout)
	}
}

func (w *IdleWatchdog) cancelLocked() {
	if w.warnTimer != nil {
		w.warnTimer.Stop()
		w.warnTimer = nil
	}
	if w.outTimer != nil {
		w.outTimer.Stop()
		w.outTimer = nil
	}
}

// DefaultHeartbeatInterval is how often the persisted session record's
// lastActive marker is refreshed.
const DefaultHeartbeatInterval = 5 * time.Minute

// Heartbeat periodically refreshes the persisted session's lastActive marker
// through the registry. Failures are swallowed by the touch; a beat can
// never break the authenticated session.
type Heartbeat struct {
	registry *Registry
	userID   string
	interval time.Duration

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

// NewHeartbeat creates a heartbeat for the signed-in user. A non-positive
// interval falls back to the default.
func NewHeartbeat(registry *Registry, userID string, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{
		registry: registry,
		userID:   userID,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start beats immediately, then on every tick until Stop or ctx cancel.
func (h *Heartbeat) Start(ctx context.Context) {
	h.started = true
	go func() {
		defer close(h.done)

		h.registry.TouchCurrent(ctx, h.userID)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.registry.TouchCurrent(ctx, h.userID)
			case <-h.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the heartbeat and waits for the loop to exit.
func (h *Heartbeat) Stop() {
	h.once.Do(func() { close(h.stop) })
	if h.started {
		<-h.done
	}
}
