// Package wire implements the minibot UDP protocol: ASCII
// colon-delimited control messages plus the 24-byte binary control
// frame. Producers are the driver station (host side) and the robot
// (discovery pings); consumers are the opposite ends. Decoding is
// total: malformed or foreign packets are ignored, never errors.
package wire

// Well-known ports.
const (
	// DiscoveryPort is where robots broadcast presence and listen
	// before a command port is assigned.
	DiscoveryPort = 12345
	// CommandPortBase is the first port the station hands out.
	CommandPortBase = 12346
)

// DeviceID is the short ASCII name addressing all protocol messages.
// It must fit the null-padded 16-byte name field of a control frame.
type DeviceID string

// MaxIDLen is the longest usable DeviceID. The frame name field is
// 16 bytes and always null-terminated.
const MaxIDLen = 15

// IsValid reports whether the ID fits on the wire.
func (id DeviceID) IsValid() bool {
	if id == "" || len(id) > MaxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' || c == ':' {
			return false
		}
	}
	return true
}

// GamePhase gates which commands a robot honors.
type GamePhase int

// Game phases, as sent in StatusUpdate messages.
const (
	PhaseStandby GamePhase = iota
	PhaseTeleop
	PhaseAutonomous
)

var phaseNames = map[GamePhase]string{
	PhaseStandby:    "standby",
	PhaseTeleop:     "teleop",
	PhaseAutonomous: "autonomous",
}

// String returns the wire form of the phase.
func (p GamePhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "standby"
}

// ParseGamePhase parses the wire form. Unrecognized strings are
// rejected, not defaulted.
func ParseGamePhase(s string) (GamePhase, bool) {
	for p, name := range phaseNames {
		if s == name {
			return p, true
		}
	}
	return PhaseStandby, false
}

// Buttons is the button bitmask of a control frame.
type Buttons byte

// Button flags, bit0..bit3 of frame byte 22.
const (
	ButtonCross Buttons = 1 << iota
	ButtonCircle
	ButtonSquare
	ButtonTriangle
)

// Has reports whether all given flags are pressed.
func (b Buttons) Has(flags Buttons) bool {
	return b&flags == flags
}

// Axes is one joystick snapshot. Values are raw bytes with
// center at 127.
type Axes struct {
	LeftX, LeftY   uint8
	RightX, RightY uint8
}

// AxisCenter is the at-rest axis value.
const AxisCenter uint8 = 127

// CenteredAxes returns an at-rest snapshot.
func CenteredAxes() Axes {
	return Axes{AxisCenter, AxisCenter, AxisCenter, AxisCenter}
}

// Message is one decoded protocol message.
type Message interface {
	message()
}

// DiscoveryPing announces a robot's presence.
// Wire form "DISCOVER:<id>:<addr>" with an optional trailing
// ":<port>" used by simulated robots listening off the shared
// discovery port.
type DiscoveryPing struct {
	ID   DeviceID
	Addr string
	// Port is where the robot listens for the assignment reply.
	// Zero means the well-known discovery port.
	Port int
}

// PortAssignment moves a robot onto a dedicated command port.
// Wire form "PORT:<id>:<port>".
type PortAssignment struct {
	ID   DeviceID
	Port int
}

// EmergencyStop latches the robot's stop. Wire form "ESTOP".
type EmergencyStop struct{}

// EmergencyStopRelease clears the latch. Wire form "ESTOP_OFF".
type EmergencyStopRelease struct{}

// StatusUpdate sets the game phase. Wire form "<id>:<status>".
type StatusUpdate struct {
	ID    DeviceID
	Phase GamePhase
}

// ControlFrame is the 24-byte binary joystick snapshot.
type ControlFrame struct {
	ID      DeviceID
	Axes    Axes
	Buttons Buttons
}

func (DiscoveryPing) message()        {}
func (PortAssignment) message()       {}
func (EmergencyStop) message()        {}
func (EmergencyStopRelease) message() {}
func (StatusUpdate) message()         {}
func (ControlFrame) message()         {}
