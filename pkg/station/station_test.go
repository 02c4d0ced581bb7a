package station

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

type sentPkt struct {
	addr string
	pkt  string
}

type fakeConn struct {
	sent  []sentPkt
	inbox []sentPkt // addr is the sender here
}

func (c *fakeConn) SendTo(addr string, pkt []byte) error {
	c.sent = append(c.sent, sentPkt{addr: addr, pkt: string(pkt)})
	return nil
}

func (c *fakeConn) TryReceive() ([]byte, string, error) {
	if len(c.inbox) == 0 {
		return nil, "", nil
	}
	next := c.inbox[0]
	c.inbox = c.inbox[1:]
	return []byte(next.pkt), next.addr, nil
}

func (c *fakeConn) push(from, pkt string) {
	c.inbox = append(c.inbox, sentPkt{addr: from, pkt: pkt})
}

func (c *fakeConn) sentTo(addr string) []string {
	var pkts []string
	for _, s := range c.sent {
		if s.addr == addr {
			pkts = append(pkts, s.pkt)
		}
	}
	return pkts
}

type recordObserver struct {
	discovered, lost []wire.DeviceID
}

func (o *recordObserver) RobotDiscovered(r Robot) { o.discovered = append(o.discovered, r.ID) }
func (o *recordObserver) RobotLost(r Robot)       { o.lost = append(o.lost, r.ID) }

func stepAt(t *testing.T, st *Station, now time.Time) {
	t.Helper()
	require.NoError(t, st.Step(context.Background(), now))
}

func TestStationAssignsPorts(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	obs := &recordObserver{}
	st := New(conn)
	st.Observer = obs

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base)

	require.Equal(t, []wire.DeviceID{"BOT1"}, obs.discovered)
	require.Equal(t, []string{"PORT:BOT1:12346"}, conn.sentTo("10.0.0.7:12345"))
	// Late joiners immediately learn the current phase.
	require.Equal(t, []string{"BOT1:standby"}, conn.sentTo("10.0.0.7:12346"))

	// Repeat pings re-send the same assignment, no new allocation.
	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base.Add(2*time.Second))
	require.Equal(t, []wire.DeviceID{"BOT1"}, obs.discovered)
	require.Equal(t, []string{"PORT:BOT1:12346", "PORT:BOT1:12346"}, conn.sentTo("10.0.0.7:12345"))
}

func TestStationSenderAddressWins(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	st := New(conn)

	// The self-reported address is stale; replies go to the socket
	// source.
	conn.push("10.0.0.9:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base)
	require.Equal(t, []string{"PORT:BOT1:12346"}, conn.sentTo("10.0.0.9:12345"))
}

func TestStationPhaseBroadcast(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	st := New(conn)

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	conn.push("10.0.0.8:12350", "DISCOVER:BOT2:10.0.0.8:12350")
	stepAt(t, st, base)

	st.SetPhase(wire.PhaseTeleop)
	stepAt(t, st, base.Add(20*time.Millisecond))

	require.Contains(t, conn.sentTo("10.0.0.7:12346"), "BOT1:teleop")
	require.Contains(t, conn.sentTo("10.0.0.8:12347"), "BOT2:teleop")
}

func TestStationEStopBothPorts(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	st := New(conn)

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base)

	st.SetEStop(true)
	stepAt(t, st, base.Add(20*time.Millisecond))
	require.Contains(t, conn.sentTo("10.0.0.7:12346"), "ESTOP")
	require.Contains(t, conn.sentTo("10.0.0.7:12345"), "ESTOP")

	// A robot discovered while the latch is set is stopped at once.
	conn.push("10.0.0.8:12345", "DISCOVER:BOT2:10.0.0.8")
	stepAt(t, st, base.Add(40*time.Millisecond))
	require.Contains(t, conn.sentTo("10.0.0.8:12347"), "ESTOP")

	st.SetEStop(false)
	stepAt(t, st, base.Add(60*time.Millisecond))
	require.Contains(t, conn.sentTo("10.0.0.7:12346"), "ESTOP_OFF")
}

func TestStationControlFramesGated(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	st := New(conn)

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base)
	before := len(conn.sent)

	// Standby: dropped.
	st.SendControl("BOT1", wire.CenteredAxes(), 0)
	stepAt(t, st, base.Add(20*time.Millisecond))
	require.Len(t, conn.sent, before)

	st.SetPhase(wire.PhaseTeleop)
	st.SendControl("BOT1", wire.CenteredAxes(), wire.ButtonCross)
	stepAt(t, st, base.Add(40*time.Millisecond))
	pkts := conn.sentTo("10.0.0.7:12346")
	last := pkts[len(pkts)-1]
	require.Len(t, last, wire.FrameSize)

	msg, ok := wire.Decode([]byte(last), "BOT1")
	require.True(t, ok)
	require.Equal(t, wire.ControlFrame{ID: "BOT1", Axes: wire.CenteredAxes(), Buttons: wire.ButtonCross}, msg)

	// Unknown robots and estop both drop frames.
	st.SendControl("BOT9", wire.CenteredAxes(), 0)
	st.SetEStop(true)
	st.SendControl("BOT1", wire.CenteredAxes(), 0)
	stepAt(t, st, base.Add(60*time.Millisecond))
	for _, s := range conn.sent {
		if len(s.pkt) == wire.FrameSize && s.pkt != last {
			t.Fatalf("unexpected control frame to %s", s.addr)
		}
	}
}

func TestStationExpiresAndNotifies(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	obs := &recordObserver{}
	st := New(conn)
	st.Observer = obs

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base)
	stepAt(t, st, base.Add(11*time.Second))

	require.Equal(t, []wire.DeviceID{"BOT1"}, obs.lost)
	require.Empty(t, st.Registry.Robots())
}

func TestStationSnapshotOnChange(t *testing.T) {
	base := time.Unix(1000, 0)
	conn := &fakeConn{}
	st := New(conn)
	var snaps []Snapshot
	st.OnSnapshot = func(s Snapshot) { snaps = append(snaps, s) }

	stepAt(t, st, base) // initial snapshot
	stepAt(t, st, base.Add(20*time.Millisecond))
	require.Len(t, snaps, 1, "no change, no snapshot")

	conn.push("10.0.0.7:12345", "DISCOVER:BOT1:10.0.0.7")
	stepAt(t, st, base.Add(40*time.Millisecond))
	require.Len(t, snaps, 2)
	require.Len(t, snaps[1].Robots, 1)
	require.Equal(t, "standby", snaps[1].Phase)
}
