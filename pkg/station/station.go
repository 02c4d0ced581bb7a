package station

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/golang/glog"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// Conn is the capability the station needs from the network stack.
type Conn interface {
	// SendTo sends a datagram to "host:port".
	SendTo(addr string, pkt []byte) error
	// TryReceive returns at most one pending datagram and its
	// sender, nil when none is pending.
	TryReceive() ([]byte, string, error)
}

// Observer receives station notifications, e.g. for telemetry.
// Callbacks run on the loop goroutine and must not block.
type Observer interface {
	RobotDiscovered(Robot)
	RobotLost(Robot)
}

// Snapshot is the station state pushed to status feeds.
type Snapshot struct {
	Phase  string  `json:"phase"`
	EStop  bool    `json:"estop"`
	Robots []Robot `json:"robots"`
}

// maxDrainPerStep bounds how many datagrams one step consumes so a
// chatty network cannot starve the loop.
const maxDrainPerStep = 16

// Station owns the registry and all outbound protocol traffic. All
// state is mutated on the loop goroutine only; external callers
// reach it through the command mailbox.
type Station struct {
	Registry   *Registry
	Conn       Conn
	Observer   Observer
	OnSnapshot func(Snapshot)

	phase   wire.GamePhase
	estop   bool
	changed bool
	cmdCh   chan func(*Station)
}

// New creates a Station.
func New(conn Conn) *Station {
	return &Station{
		Registry: NewRegistry(),
		Conn:     conn,
		changed:  true,
		cmdCh:    make(chan func(*Station), 16),
	}
}

// Name implements Named.
func (st *Station) Name() string {
	return "station"
}

// AddToLoop implements LoopAdder.
func (st *Station) AddToLoop(loop *fx.Loop) {
	loop.AddStepper(st)
}

// Step performs one station step: run queued commands, expire stale
// robots, consume pending datagrams, publish a snapshot on change.
func (st *Station) Step(ctx context.Context, now time.Time) error {
	var errs fx.AggregatedError
	for {
		select {
		case fn := <-st.cmdCh:
			fn(st)
			continue
		default:
		}
		break
	}

	for _, robot := range st.Registry.Expire(now) {
		glog.Warningf("robot %s timed out", robot.ID)
		st.changed = true
		if st.Observer != nil {
			st.Observer.RobotLost(robot)
		}
	}

	for i := 0; i < maxDrainPerStep; i++ {
		pkt, from, err := st.Conn.TryReceive()
		if err != nil {
			errs.Add(err)
			break
		}
		if pkt == nil {
			break
		}
		if ping, ok := wire.DecodeDiscovery(pkt); ok {
			errs.Add(st.handlePing(ping, from, now))
		}
	}

	if st.changed {
		st.changed = false
		if st.OnSnapshot != nil {
			st.OnSnapshot(st.snapshot())
		}
	}
	return errs.Aggregate()
}

func (st *Station) handlePing(ping wire.DiscoveryPing, from string, now time.Time) error {
	// Trust the socket over the self-reported address when they
	// disagree; NAT-less LANs make them equal anyway.
	if host, _, err := net.SplitHostPort(from); err == nil && host != "" {
		ping.Addr = host
	}
	robot, isNew := st.Registry.Observe(ping, now)
	if isNew {
		glog.Infof("discovered robot %s at %s, assigning port %d", robot.ID, robot.Addr, robot.Port)
		st.changed = true
		if st.Observer != nil {
			st.Observer.RobotDiscovered(robot)
		}
	}

	var errs fx.AggregatedError
	assign := wire.PortAssignment{ID: robot.ID, Port: robot.Port}
	errs.Add(st.Conn.SendTo(replyAddr(robot), assign.Encode()))
	// Late joiners learn the current phase and latch right away
	// instead of waiting for the next operator change.
	errs.Add(st.sendStatus(robot))
	if st.estop {
		errs.Add(st.Conn.SendTo(commandAddr(robot), wire.EmergencyStop{}.Encode()))
	}
	return errs.Aggregate()
}

// Do queues fn to run on the loop goroutine. It is the only safe
// entry point for other goroutines.
func (st *Station) Do(fn func(*Station)) {
	st.cmdCh <- fn
}

// SetPhase changes the game phase and broadcasts it to every robot.
// Safe to call from any goroutine.
func (st *Station) SetPhase(phase wire.GamePhase) {
	st.Do(func(st *Station) { st.setPhase(phase) })
}

// SetEStop latches or releases the emergency stop on every robot.
// Safe to call from any goroutine.
func (st *Station) SetEStop(latched bool) {
	st.Do(func(st *Station) { st.setEStop(latched) })
}

// SendControl forwards a joystick snapshot to one robot. Frames are
// only sent during teleop with the stop released; anything else is
// dropped. Safe to call from any goroutine.
func (st *Station) SendControl(id wire.DeviceID, axes wire.Axes, buttons wire.Buttons) {
	st.Do(func(st *Station) { st.sendControl(id, axes, buttons) })
}

// Refresh clears the registry to force rediscovery. Safe to call
// from any goroutine.
func (st *Station) Refresh() {
	st.Do(func(st *Station) {
		st.Registry.Refresh()
		st.changed = true
	})
}

func (st *Station) setPhase(phase wire.GamePhase) {
	if st.phase == phase {
		return
	}
	st.phase = phase
	st.changed = true
	glog.Infof("game phase: %s", phase)
	for _, robot := range st.Registry.Robots() {
		if err := st.sendStatus(robot); err != nil {
			glog.Errorf("send status to %s: %v", robot.ID, err)
		}
	}
}

func (st *Station) setEStop(latched bool) {
	st.estop = latched
	st.changed = true
	var pkt []byte
	if latched {
		glog.Warning("EMERGENCY STOP")
		pkt = wire.EmergencyStop{}.Encode()
	} else {
		glog.Info("emergency stop released")
		pkt = wire.EmergencyStopRelease{}.Encode()
	}
	// Both ports: the robot may be mid-reversion to discovery.
	for _, robot := range st.Registry.Robots() {
		if err := st.Conn.SendTo(commandAddr(robot), pkt); err != nil {
			glog.Errorf("send estop to %s: %v", robot.ID, err)
		}
		if err := st.Conn.SendTo(replyAddr(robot), pkt); err != nil {
			glog.Errorf("send estop to %s: %v", robot.ID, err)
		}
	}
}

func (st *Station) sendControl(id wire.DeviceID, axes wire.Axes, buttons wire.Buttons) {
	if st.phase != wire.PhaseTeleop || st.estop {
		return
	}
	robot, ok := st.Registry.Lookup(id)
	if !ok {
		return
	}
	frame := wire.ControlFrame{ID: robot.ID, Axes: axes, Buttons: buttons}
	if err := st.Conn.SendTo(commandAddr(robot), frame.Encode()); err != nil {
		glog.Errorf("send control to %s: %v", robot.ID, err)
	}
}

func (st *Station) sendStatus(robot Robot) error {
	status := wire.StatusUpdate{ID: robot.ID, Phase: st.phase}
	return st.Conn.SendTo(commandAddr(robot), status.Encode())
}

func (st *Station) snapshot() Snapshot {
	return Snapshot{
		Phase:  st.phase.String(),
		EStop:  st.estop,
		Robots: st.Registry.Robots(),
	}
}

// Phase returns the current game phase. Loop goroutine only.
func (st *Station) Phase() wire.GamePhase { return st.phase }

// EStopped reports the latch state. Loop goroutine only.
func (st *Station) EStopped() bool { return st.estop }

func commandAddr(robot Robot) string {
	return net.JoinHostPort(robot.Addr, strconv.Itoa(robot.Port))
}

func replyAddr(robot Robot) string {
	return net.JoinHostPort(robot.Addr, strconv.Itoa(robot.ReplyPort))
}
