package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 11, 19, 14, 0, 0, 0, time.UTC)

func TestTick_SleepingBeforeWake(t *testing.T) {
	l := New(time.Minute, 2*time.Minute)
	assert.Equal(t, Sleeping, l.State().Mode)
	assert.Equal(t, ActionNone, l.Tick(t0, true))
}

func TestTick_RefreshFirstAfterWake(t *testing.T) {
	l := New(time.Minute, 2*time.Minute)
	l.Wake(t0)

	// Even far past the idle timeout, the first action is a refresh.
	assert.Equal(t, ActionRefresh, l.Tick(t0.Add(10*time.Minute), false))
	assert.Equal(t, ActionRefresh, l.Tick(t0.Add(10*time.Minute), false))

	l.MarkRefreshed(t0.Add(10 * time.Minute))
	assert.Equal(t, ActionSleep, l.Tick(t0.Add(10*time.Minute), false))
}

func TestTick_RefreshInterval(t *testing.T) {
	l := New(time.Minute, 0)
	l.Wake(t0)
	require.Equal(t, ActionRefresh, l.Tick(t0, false))
	l.MarkRefreshed(t0)

	assert.Equal(t, ActionNone, l.Tick(t0.Add(59*time.Second), false))
	assert.Equal(t, ActionRefresh, l.Tick(t0.Add(60*time.Second), false))
	l.MarkRefreshed(t0.Add(60 * time.Second))
	assert.Equal(t, ActionNone, l.Tick(t0.Add(61*time.Second), false))
}

func TestTick_NoIdleTimeoutRefreshesForever(t *testing.T) {
	l := New(time.Minute, 0)
	l.Wake(t0)
	now := t0
	for i := 0; i < 60; i++ {
		action := l.Tick(now, false)
		require.NotEqual(t, ActionSleep, action)
		if action == ActionRefresh {
			l.MarkRefreshed(now)
		}
		now = now.Add(30 * time.Second)
	}
	assert.Equal(t, Active, l.State().Mode)
}

func TestTick_IdleTimeout(t *testing.T) {
	l := New(time.Minute, 2*time.Minute)
	l.Wake(t0)
	l.Tick(t0, false)
	l.MarkRefreshed(t0)

	assert.Equal(t, ActionRefresh, l.Tick(t0.Add(time.Minute), false))
	l.MarkRefreshed(t0.Add(time.Minute))
	assert.Equal(t, ActionRefresh, l.Tick(t0.Add(2*time.Minute), false))
	l.MarkRefreshed(t0.Add(2 * time.Minute))
	assert.Equal(t, ActionNone, l.Tick(t0.Add(2*time.Minute), false))

	assert.Equal(t, ActionSleep, l.Tick(t0.Add(2*time.Minute+time.Second), false))
	assert.Equal(t, Sleeping, l.State().Mode)

	// No second sleep while asleep.
	assert.Equal(t, ActionNone, l.Tick(t0.Add(3*time.Minute), false))
}

func TestTick_TouchDefersSleep(t *testing.T) {
	l := New(time.Minute, 2*time.Minute)
	l.Wake(t0)
	l.Tick(t0, false)
	l.MarkRefreshed(t0)

	l.Tick(t0.Add(90*time.Second), true)
	assert.Equal(t, t0.Add(90*time.Second), l.State().LastInteraction)

	l.MarkRefreshed(t0.Add(3 * time.Minute))
	assert.Equal(t, ActionNone, l.Tick(t0.Add(3*time.Minute), false))
	assert.Equal(t, ActionSleep, l.Tick(t0.Add(3*time.Minute+31*time.Second), false))
}

func TestWake_ResetsState(t *testing.T) {
	l := New(time.Minute, 2*time.Minute)
	l.Wake(t0)
	l.Tick(t0, false)
	l.MarkRefreshed(t0)
	require.Equal(t, ActionSleep, l.Tick(t0.Add(5*time.Minute), false))

	woke := t0.Add(time.Hour)
	l.Wake(woke)
	st := l.State()
	assert.Equal(t, Active, st.Mode)
	assert.Equal(t, woke, st.LastInteraction)
	assert.Equal(t, woke, st.LastRefresh)
	assert.False(t, st.Refreshed)

	// The next state after a wake is always an Active refresh.
	assert.Equal(t, ActionRefresh, l.Tick(woke.Add(time.Hour), false))
}
