// Package lifecycle decides when the board refreshes and when it goes to sleep.
//
// Lifecycle owns the timing fields; nothing else writes them. The scheduler
// asks it what to do on every tick and reports back after a refresh.
package lifecycle

import "time"

type Mode int

const (
	Active Mode = iota
	Sleeping
)

func (m Mode) String() string {
	if m == Sleeping {
		return "sleeping"
	}
	return "active"
}

type Action int

const (
	ActionNone Action = iota
	ActionRefresh
	ActionSleep
)

func (a Action) String() string {
	switch a {
	case ActionRefresh:
		return "refresh"
	case ActionSleep:
		return "sleep"
	default:
		return "none"
	}
}

// State is the process-wide lifecycle state.
type State struct {
	Mode            Mode
	LastInteraction time.Time
	LastRefresh     time.Time
	// Refreshed is false until the first pipeline run after (re)activation.
	Refreshed bool
}

type Lifecycle struct {
	refreshInterval time.Duration
	idleTimeout     time.Duration
	state           State
}

// New creates a lifecycle. idleTimeout of 0 disables sleeping. The lifecycle
// starts Sleeping until Wake is called once boot has finished.
func New(refreshInterval, idleTimeout time.Duration) *Lifecycle {
	return &Lifecycle{
		refreshInterval: refreshInterval,
		idleTimeout:     idleTimeout,
		state:           State{Mode: Sleeping},
	}
}

// State returns a copy of the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Wake enters Active with fresh timestamps. The next Tick always refreshes.
func (l *Lifecycle) Wake(now time.Time) {
	l.state = State{
		Mode:            Active,
		LastInteraction: now,
		LastRefresh:     now,
	}
}

// Tick records interaction and returns what the control loop should do next.
func (l *Lifecycle) Tick(now time.Time, touched bool) Action {
	if l.state.Mode != Active {
		return ActionNone
	}

	if touched {
		l.state.LastInteraction = now
	}

	if !l.state.Refreshed {
		return ActionRefresh
	}

	if l.idleTimeout > 0 && now.Sub(l.state.LastInteraction) > l.idleTimeout {
		l.state.Mode = Sleeping
		return ActionSleep
	}

	if now.Sub(l.state.LastRefresh) >= l.refreshInterval {
		return ActionRefresh
	}

	return ActionNone
}

// MarkRefreshed records a completed pipeline run.
func (l *Lifecycle) MarkRefreshed(now time.Time) {
	l.state.LastRefresh = now
	l.state.Refreshed = true
}

// IdleTimeout returns the configured timeout, 0 when sleeping is disabled.
func (l *Lifecycle) IdleTimeout() time.Duration {
	return l.idleTimeout
}
