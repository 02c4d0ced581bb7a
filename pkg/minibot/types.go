// Package minibot implements the robot-side core: the
// discovery/connection session state machine, fail-safe timing and
// actuator signal mapping. Hardware PWM and the network stack stay
// behind two narrow capability interfaces so the core never touches
// platform APIs directly.
package minibot

// Channel identifies one actuation output.
type Channel int

// Actuation channels.
const (
	LeftDrive Channel = iota
	RightDrive
	AuxMotor
	Servo

	// NumChannels is the number of actuation channels.
	NumChannels
)

var channelNames = [NumChannels]string{"left-drive", "right-drive", "aux-motor", "servo"}

// String implements Stringer.
func (c Channel) String() string {
	if c >= 0 && c < NumChannels {
		return channelNames[c]
	}
	return "invalid"
}

// DatagramSocket is the capability the session needs from the
// network stack. A real implementation lives in driver/udp; tests
// inject fakes.
type DatagramSocket interface {
	// Send broadcasts a datagram on the well-known discovery port.
	Send(pkt []byte) error
	// TryReceive returns at most one pending datagram without
	// blocking. A nil slice means nothing was pending.
	TryReceive() ([]byte, error)
	// Rebind moves the listening side to another local port.
	Rebind(port int) error
}

// ActuationDriver is the capability the session needs from the PWM
// peripheral. Implementations are single-writer resources.
type ActuationDriver interface {
	WriteDuty(ch Channel, duty uint32) error
}
