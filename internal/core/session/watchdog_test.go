package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

func TestIdleWatchdogWarnsThenTimesOut(t *testing.T) {
	warned := make(chan time.Duration, 1)
	timedOut := make(chan core.SignOutReason, 1)

	w := NewIdleWatchdog(60*time.Millisecond, 20*time.Millisecond,
		func(remaining time.Duration) { warned <- remaining },
		func(reason core.SignOutReason) { timedOut <- reason },
	)
	w.Start()
	defer w.Stop()

	select {
	case remaining := <-warned:
		require.Equal(t, 20*time.Millisecond, remaining)
	case <-time.After(time.Second):
		t.Fatal("warning never fired")
	}

	select {
	case reason := <-timedOut:
		require.Equal(t, core.SignOutIdleTimeout, reason)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestIdleWatchdogResetDefersTimeout(t *testing.T) {
	var timeouts atomic.Int32

	w := NewIdleWatchdog(80*time.Millisecond, 20*time.Millisecond,
		nil,
		func(core.SignOutReason) { timeouts.Add(1) },
	)
	w.Start()
	defer w.Stop()

	// Keep interacting past the original deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		w.Reset()
	}
	require.Equal(t, int32(0), timeouts.Load())

	require.Eventually(t, func() bool { return timeouts.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestIdleWatchdogStopCancelsTimers(t *testing.T) {
	var timeouts atomic.Int32

	w := NewIdleWatchdog(30*time.Millisecond, 10*time.Millisecond,
		nil,
		func(core.SignOutReason) { timeouts.Add(1) },
	)
	w.Start()
	w.Stop()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), timeouts.Load())

	// Reset after Stop must not rearm.
	w.Reset()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), timeouts.Load())
}

func TestIdleWatchdogStaleCallbacksAreDiscarded(t *testing.T) {
	var warns, timeouts atomic.Int32

	w := NewIdleWatchdog(80*time.Millisecond, 20*time.Millisecond,
		func(time.Duration) { warns.Add(1) },
		func(core.SignOutReason) { timeouts.Add(1) },
	)
	w.Start()
	defer w.Stop()

	// A callback whose timer fired just before a Reset carries the previous
	// arming's generation and must be dropped, not delivered late.
	firstGen := func() uint64 {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.gen
	}()
	w.Reset()

	w.fireWarn(firstGen)
	w.fireTimeout(firstGen)
	require.Equal(t, int32(0), warns.Load())
	require.Equal(t, int32(0), timeouts.Load())

	// The current generation still delivers.
	w.fireTimeout(firstGen + 1)
	require.Equal(t, int32(1), timeouts.Load())

	// And the watchdog is spent after a delivered timeout.
	w.fireTimeout(firstGen + 1)
	require.Equal(t, int32(1), timeouts.Load())
}

func TestHeartbeatBeatsImmediatelyAndOnTicks(t *testing.T) {
	store := &memStore{}
	cache := &memCache{}
	reg := NewRegistry(store, cache)

	id, err := reg.Register(context.Background(), "u1", "ua")
	require.NoError(t, err)
	registeredAt, ok := store.lastActive(id)
	require.True(t, ok)

	hb := NewHeartbeat(reg, "u1", 20*time.Millisecond)
	hb.Start(context.Background())
	defer hb.Stop()

	// The immediate beat and the first tick both advance the marker.
	require.Eventually(t, func() bool {
		at, _ := store.lastActive(id)
		return at.After(registeredAt)
	}, time.Second, 5*time.Millisecond)

	afterFirst, _ := store.lastActive(id)
	require.Eventually(t, func() bool {
		at, _ := store.lastActive(id)
		return at.After(afterFirst)
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatStopEndsLoop(t *testing.T) {
	store := &memStore{}
	cache := &memCache{}
	reg := NewRegistry(store, cache)

	id, err := reg.Register(context.Background(), "u1", "ua")
	require.NoError(t, err)

	hb := NewHeartbeat(reg, "u1", 10*time.Millisecond)
	hb.Start(context.Background())
	hb.Stop()

	frozen, _ := store.lastActive(id)
	time.Sleep(50 * time.Millisecond)
	current, _ := store.lastActive(id)
	require.Equal(t, frozen, current)
}
