package minibot

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// State is the connection state of a session.
type State int

// Session states. There is no terminal state; the session loops
// between the two indefinitely.
const (
	// Discovering: broadcasting presence, listening on the
	// well-known discovery port.
	Discovering State = iota
	// Connected: bound to an assigned command port, accepting
	// commands.
	Connected
)

// String implements Stringer.
func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "discovering"
}

// Observer receives session notifications, e.g. for telemetry.
// Callbacks run on the loop goroutine and must not block.
type Observer interface {
	StateChanged(state State, port int)
	EStopChanged(latched bool)
}

// Session is the connection state machine. It owns the current
// state, assigned port, liveness timers and the latest control
// inputs, and drives decoding, fail-safe timing and actuation
// mapping on each poll step. All fields are owned by the loop
// goroutine; there is no concurrent access.
type Session struct {
	ID       wire.DeviceID
	Addr     string
	Socket   DatagramSocket
	Driver   ActuationDriver
	Mapper   Mapper
	Observer Observer

	state        State
	assignedPort int
	phase        wire.GamePhase
	axes         wire.Axes
	buttons      wire.Buttons
	fs           failSafe
}

// NewSession creates a Session in the Discovering state.
func NewSession(id wire.DeviceID, addr string, socket DatagramSocket, driver ActuationDriver) *Session {
	return &Session{
		ID:     id,
		Addr:   addr,
		Socket: socket,
		Driver: driver,
		Mapper: NewMapper(),
		axes:   wire.CenteredAxes(),
	}
}

// Name implements Named.
func (s *Session) Name() string {
	return string(s.ID)
}

// AddToLoop implements LoopAdder.
func (s *Session) AddToLoop(loop *fx.Loop) {
	loop.AddStepper(s)
}

// Step performs one control-loop step: fail-safe timer check, at
// most one non-blocking datagram read, decode, state update, and
// the neutral-output override when actuation is gated.
func (s *Session) Step(ctx context.Context, now time.Time) error {
	var errs fx.AggregatedError

	switch s.fs.tick(now, s.state == Connected) {
	case ActionPing:
		ping := wire.DiscoveryPing{ID: s.ID, Addr: s.Addr}
		if err := s.Socket.Send(ping.Encode()); err != nil {
			errs.Add(err)
		} else {
			glog.V(2).Infof("%s: sent discovery ping", s.ID)
		}
		s.fs.lastPingAt = now
	case ActionRevert:
		glog.Warningf("%s: connection timeout, reverting to discovery", s.ID)
		errs.Add(s.revert())
	}

	if pkt, err := s.Socket.TryReceive(); err != nil {
		errs.Add(err)
	} else if pkt != nil {
		if msg, ok := wire.Decode(pkt, s.ID); ok {
			errs.Add(s.handle(msg, now))
		}
	}

	// The latch and the connection invariant gate output on every
	// step, regardless of what else happened.
	if !s.CanActuate() {
		errs.Add(s.forceNeutral())
	}
	return errs.Aggregate()
}

// handle applies one accepted message. The stop latch never blocks
// input tracking: frames are still decoded and stored while
// stopped, only the output side is gated.
func (s *Session) handle(msg wire.Message, now time.Time) error {
	switch m := msg.(type) {
	case wire.EmergencyStop:
		s.fs.lastCommandAt = now
		s.setEStop(true)
	case wire.EmergencyStopRelease:
		s.fs.lastCommandAt = now
		s.setEStop(false)
	case wire.PortAssignment:
		if s.state != Discovering {
			return nil
		}
		if err := s.Socket.Rebind(m.Port); err != nil {
			return err
		}
		s.assignedPort = m.Port
		s.fs.lastCommandAt = now
		s.setState(Connected)
		glog.Infof("%s: assigned port %d, connected", s.ID, m.Port)
	case wire.StatusUpdate:
		if s.state != Connected {
			return nil
		}
		s.phase = m.Phase
		s.fs.lastCommandAt = now
	case wire.ControlFrame:
		// Frames outside teleop are dropped silently.
		if s.state != Connected || s.phase != wire.PhaseTeleop {
			return nil
		}
		s.axes, s.buttons = m.Axes, m.Buttons
		s.fs.lastCommandAt = now
	}
	return nil
}

func (s *Session) revert() error {
	var errs fx.AggregatedError
	s.assignedPort = 0
	s.setState(Discovering)
	errs.Add(s.forceNeutral())
	errs.Add(s.Socket.Rebind(wire.DiscoveryPort))
	return errs.Aggregate()
}

func (s *Session) forceNeutral() error {
	var errs fx.AggregatedError
	neutral := s.Mapper.NeutralDuty()
	for ch := Channel(0); ch < NumChannels; ch++ {
		errs.Add(s.Driver.WriteDuty(ch, neutral))
	}
	return errs.Aggregate()
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.state = state
	if s.Observer != nil {
		s.Observer.StateChanged(state, s.assignedPort)
	}
}

func (s *Session) setEStop(latched bool) {
	if s.fs.estop == latched {
		return
	}
	s.fs.estop = latched
	if latched {
		glog.Warningf("%s: emergency stop latched", s.ID)
	} else {
		glog.Infof("%s: emergency stop released", s.ID)
	}
	if s.Observer != nil {
		s.Observer.EStopChanged(latched)
	}
}

// Drive maps value on the channel and writes the resulting duty.
// It returns false, leaving the previous output in place, when the
// value is out of domain; and false without writing when actuation
// is gated (the step loop is already holding neutral then).
func (s *Session) Drive(ch Channel, value float64) bool {
	if !s.CanActuate() {
		return false
	}
	duty, ok := s.Mapper.DutyFor(ch, value)
	if !ok {
		return false
	}
	if err := s.Driver.WriteDuty(ch, duty); err != nil {
		glog.Errorf("%s: write %s duty: %v", s.ID, ch, err)
		return false
	}
	return true
}

// CanActuate reports whether non-neutral output is permitted.
func (s *Session) CanActuate() bool {
	return s.state == Connected && !s.fs.estop
}

// State returns the connection state.
func (s *Session) State() State { return s.state }

// AssignedPort returns the command port, zero while discovering.
func (s *Session) AssignedPort() int { return s.assignedPort }

// Phase returns the current game phase.
func (s *Session) Phase() wire.GamePhase { return s.phase }

// Axes returns the last accepted joystick snapshot.
func (s *Session) Axes() wire.Axes { return s.axes }

// Buttons returns the last accepted button bitmask.
func (s *Session) Buttons() wire.Buttons { return s.buttons }

// EStopped reports whether the stop latch is set.
func (s *Session) EStopped() bool { return s.fs.estop }
