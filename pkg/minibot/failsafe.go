package minibot

import "time"

// Liveness bounds. A silent host is the only backpressure signal:
// past CommandTimeout the session reverts to discovery and forces
// neutral output.
const (
	// PingInterval is the discovery broadcast cadence.
	PingInterval = 2 * time.Second
	// CommandTimeout is how long a connected session survives
	// without an accepted inbound message.
	CommandTimeout = 5 * time.Second
)

// Action is what the fail-safe monitor asks the session to do on a
// poll step.
type Action int

const (
	// ActionNone means all timers are within bounds.
	ActionNone Action = iota
	// ActionPing means a discovery ping is due.
	ActionPing
	// ActionRevert means the connection is stale: drop back to
	// discovery and force neutral actuation.
	ActionRevert
)

// failSafe tracks liveness timers and the emergency-stop latch.
// Timestamps are owned by the session and only ever mutated on the
// loop goroutine.
type failSafe struct {
	lastPingAt    time.Time
	lastCommandAt time.Time
	estop         bool
}

// tick decides the fail-safe action for this step. The caller
// refreshes lastPingAt after actually sending the ping.
func (f *failSafe) tick(now time.Time, connected bool) Action {
	if connected {
		if now.Sub(f.lastCommandAt) > CommandTimeout {
			return ActionRevert
		}
		return ActionNone
	}
	if f.lastPingAt.IsZero() || now.Sub(f.lastPingAt) > PingInterval {
		return ActionPing
	}
	return ActionNone
}
