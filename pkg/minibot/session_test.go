package minibot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

type fakeSocket struct {
	sent      [][]byte
	inbox     [][]byte
	boundPort int
}

func (s *fakeSocket) Send(pkt []byte) error {
	s.sent = append(s.sent, pkt)
	return nil
}

func (s *fakeSocket) TryReceive() ([]byte, error) {
	if len(s.inbox) == 0 {
		return nil, nil
	}
	pkt := s.inbox[0]
	s.inbox = s.inbox[1:]
	return pkt, nil
}

func (s *fakeSocket) Rebind(port int) error {
	s.boundPort = port
	return nil
}

func (s *fakeSocket) push(pkt []byte) {
	s.inbox = append(s.inbox, pkt)
}

type fakeDriver struct {
	duties map[Channel]uint32
}

func (d *fakeDriver) WriteDuty(ch Channel, duty uint32) error {
	if d.duties == nil {
		d.duties = make(map[Channel]uint32)
	}
	d.duties[ch] = duty
	return nil
}

func (d *fakeDriver) requireAllNeutral(t *testing.T, m Mapper) {
	t.Helper()
	for ch := Channel(0); ch < NumChannels; ch++ {
		require.Equal(t, m.NeutralDuty(), d.duties[ch], "channel %s not neutral", ch)
	}
}

type recordObserver struct {
	states []State
	estops []bool
}

func (o *recordObserver) StateChanged(state State, port int) { o.states = append(o.states, state) }
func (o *recordObserver) EStopChanged(latched bool)          { o.estops = append(o.estops, latched) }

func newTestSession() (*Session, *fakeSocket, *fakeDriver) {
	sock := &fakeSocket{boundPort: wire.DiscoveryPort}
	drv := &fakeDriver{}
	return NewSession("BOT1", "10.0.0.7", sock, drv), sock, drv
}

func stepAt(t *testing.T, s *Session, now time.Time) {
	t.Helper()
	require.NoError(t, s.Step(context.Background(), now))
}

func connectAt(t *testing.T, s *Session, sock *fakeSocket, now time.Time) {
	t.Helper()
	sock.push(wire.PortAssignment{ID: s.ID, Port: 9000}.Encode())
	stepAt(t, s, now)
	require.Equal(t, Connected, s.State())
}

func TestSessionConnect(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()

	// Assignment addressed to another robot is ignored.
	sock.push([]byte("PORT:BOT2:9000"))
	stepAt(t, s, base)
	require.Equal(t, Discovering, s.State())
	require.Equal(t, 0, s.AssignedPort())

	sock.push([]byte("PORT:BOT1:9000"))
	stepAt(t, s, base.Add(20*time.Millisecond))
	require.Equal(t, Connected, s.State())
	require.Equal(t, 9000, s.AssignedPort())
	require.Equal(t, 9000, sock.boundPort)

	// A second assignment while connected is ignored.
	sock.push([]byte("PORT:BOT1:9001"))
	stepAt(t, s, base.Add(40*time.Millisecond))
	require.Equal(t, 9000, s.AssignedPort())
}

func TestSessionDiscoveryPings(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()

	stepAt(t, s, base)
	stepAt(t, s, base.Add(100*time.Millisecond))
	require.Len(t, sock.sent, 1, "two steps 100ms apart must ping at most once")
	require.Equal(t, "DISCOVER:BOT1:10.0.0.7", string(sock.sent[0]))

	stepAt(t, s, base.Add(2*time.Second+time.Millisecond))
	require.Len(t, sock.sent, 2)
}

func TestSessionStaleConnectionReverts(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, drv := newTestSession()
	connectAt(t, s, sock, base)

	// Quiet host: next step past the timeout reverts to discovery,
	// clears the port and forces neutral output.
	stepAt(t, s, base.Add(5*time.Second+time.Millisecond))
	require.Equal(t, Discovering, s.State())
	require.Equal(t, 0, s.AssignedPort())
	require.Equal(t, wire.DiscoveryPort, sock.boundPort)
	drv.requireAllNeutral(t, s.Mapper)
}

func TestSessionControlFrameOnlyInTeleop(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()
	connectAt(t, s, sock, base)

	frame := wire.ControlFrame{ID: "BOT1", Axes: wire.Axes{LeftX: 255, LeftY: 0, RightX: 127, RightY: 64}}

	// Standby: the frame is dropped silently, inputs unchanged.
	sock.push(frame.Encode())
	stepAt(t, s, base.Add(20*time.Millisecond))
	require.Equal(t, wire.CenteredAxes(), s.Axes())

	sock.push(wire.StatusUpdate{ID: "BOT1", Phase: wire.PhaseTeleop}.Encode())
	stepAt(t, s, base.Add(40*time.Millisecond))
	require.Equal(t, wire.PhaseTeleop, s.Phase())

	sock.push(frame.Encode())
	stepAt(t, s, base.Add(60*time.Millisecond))
	require.Equal(t, frame.Axes, s.Axes())
}

func TestSessionEStopGatesOutputNotInput(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, drv := newTestSession()
	connectAt(t, s, sock, base)
	sock.push(wire.StatusUpdate{ID: "BOT1", Phase: wire.PhaseTeleop}.Encode())
	stepAt(t, s, base.Add(20*time.Millisecond))

	require.True(t, s.Drive(LeftDrive, 1))
	full := drv.duties[LeftDrive]
	require.NotEqual(t, s.Mapper.NeutralDuty(), full)

	sock.push(wire.EmergencyStop{}.Encode())
	stepAt(t, s, base.Add(40*time.Millisecond))
	require.True(t, s.EStopped())
	drv.requireAllNeutral(t, s.Mapper)

	// Frames are still decoded and stored while stopped.
	frame := wire.ControlFrame{ID: "BOT1", Axes: wire.Axes{LeftX: 200, LeftY: 55, RightX: 127, RightY: 127}, Buttons: wire.ButtonCross}
	sock.push(frame.Encode())
	stepAt(t, s, base.Add(60*time.Millisecond))
	require.Equal(t, frame.Axes, s.Axes())
	require.Equal(t, frame.Buttons, s.Buttons())

	// But output stays neutral until the explicit release.
	require.False(t, s.Drive(LeftDrive, 1))
	drv.requireAllNeutral(t, s.Mapper)

	sock.push(wire.EmergencyStopRelease{}.Encode())
	stepAt(t, s, base.Add(80*time.Millisecond))
	require.False(t, s.EStopped())
	require.True(t, s.Drive(LeftDrive, 1))
	require.Equal(t, full, drv.duties[LeftDrive])
}

func TestSessionEStopWhileDiscovering(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()

	// The latch applies in every connection state.
	sock.push(wire.EmergencyStop{}.Encode())
	stepAt(t, s, base)
	require.True(t, s.EStopped())

	// And survives the transition to connected.
	connectAt(t, s, sock, base.Add(20*time.Millisecond))
	require.True(t, s.EStopped())
	require.False(t, s.CanActuate())
}

func TestSessionEStopRefreshesLiveness(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()
	connectAt(t, s, sock, base)

	// ESTOP counts as host traffic: it keeps the session alive.
	sock.push(wire.EmergencyStop{}.Encode())
	stepAt(t, s, base.Add(4*time.Second))
	stepAt(t, s, base.Add(8*time.Second))
	require.Equal(t, Connected, s.State())

	stepAt(t, s, base.Add(10*time.Second))
	require.Equal(t, Discovering, s.State())
}

func TestSessionDriveRejectsOutOfRange(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, drv := newTestSession()
	connectAt(t, s, sock, base)

	require.True(t, s.Drive(LeftDrive, 0.5))
	held := drv.duties[LeftDrive]
	require.False(t, s.Drive(LeftDrive, 1.5))
	require.False(t, s.Drive(LeftDrive, -2))
	require.Equal(t, held, drv.duties[LeftDrive], "rejected value must hold previous output")

	require.True(t, s.Drive(Servo, -50))
	require.False(t, s.Drive(Servo, 60))
}

func TestSessionObserver(t *testing.T) {
	base := time.Unix(1000, 0)
	s, sock, _ := newTestSession()
	obs := &recordObserver{}
	s.Observer = obs

	connectAt(t, s, sock, base)
	sock.push(wire.EmergencyStop{}.Encode())
	stepAt(t, s, base.Add(20*time.Millisecond))
	sock.push(wire.EmergencyStopRelease{}.Encode())
	stepAt(t, s, base.Add(40*time.Millisecond))
	stepAt(t, s, base.Add(10*time.Second)) // stale, reverts

	require.Equal(t, []State{Connected, Discovering}, obs.states)
	require.Equal(t, []bool{true, false}, obs.estops)
}
