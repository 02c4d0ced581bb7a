// Package udp provides the datagram transport for the minibot
// protocol: the robot-side DatagramSocket and the host-side Conn.
// Both bind broadcast-capable sockets and never block on receive.
package udp

import (
	"net"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// maxDatagram bounds a single protocol datagram.
const maxDatagram = 256

// Socket implements minibot.DatagramSocket on a UDP socket.
type Socket struct {
	// BroadcastAddr receives discovery pings.
	BroadcastAddr net.IP
	// DiscoveryPort is the well-known port pings are sent to.
	DiscoveryPort int

	conn *net.UDPConn
	buf  [maxDatagram]byte
}

// Open binds the robot socket on the discovery port.
func Open() (*Socket, error) {
	s := &Socket{
		BroadcastAddr: net.IPv4bcast,
		DiscoveryPort: wire.DiscoveryPort,
	}
	conn, err := listenBroadcast(wire.DiscoveryPort)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// Send broadcasts a datagram on the discovery port.
func (s *Socket) Send(pkt []byte) error {
	_, err := s.conn.WriteToUDP(pkt, &net.UDPAddr{IP: s.BroadcastAddr, Port: s.DiscoveryPort})
	return err
}

// TryReceive returns at most one pending datagram, nil when none is
// pending.
func (s *Socket) TryReceive() ([]byte, error) {
	pkt, _, err := tryReceive(s.conn, s.buf[:])
	return pkt, err
}

// Rebind moves the listening side to another local port.
func (s *Socket) Rebind(port int) error {
	conn, err := listenBroadcast(port)
	if err != nil {
		return err
	}
	s.conn.Close()
	s.conn = conn
	glog.V(1).Infof("rebound to port %d", port)
	return nil
}

// Close implements io.Closer.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Conn is the host-side socket: it addresses individual robots and
// reports the sender of each datagram.
type Conn struct {
	conn *net.UDPConn
	buf  [maxDatagram]byte
}

// OpenConn binds a host socket on the given port; zero picks an
// ephemeral port (used by the protocol shell).
func OpenConn(port int) (*Conn, error) {
	conn, err := listenBroadcast(port)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: conn}, nil
}

// SendTo sends a datagram to "host:port".
func (c *Conn) SendTo(addr string, pkt []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDP(pkt, udpAddr)
	return err
}

// TryReceive returns at most one pending datagram and its sender
// address, nil when none is pending.
func (c *Conn) TryReceive() ([]byte, string, error) {
	return tryReceive(c.conn, c.buf[:])
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func tryReceive(conn *net.UDPConn, buf []byte) ([]byte, string, error) {
	if err := conn.SetReadDeadline(time.Now()); err != nil {
		return nil, "", err
	}
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, "", nil
		}
		return nil, "", err
	}
	pkt := make([]byte, n)
	copy(pkt, buf[:n])
	return pkt, from.String(), nil
}

func listenBroadcast(port int) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	if err = enableBroadcast(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		if serr == nil {
			serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
		}
	})
	if err != nil {
		return err
	}
	return serr
}

// OutboundIP guesses the local address to advertise in discovery
// pings when none is configured.
func OutboundIP() string {
	conn, err := net.Dial("udp4", "255.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
