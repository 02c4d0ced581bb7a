package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// Binary control frame layout.
const (
	// FrameSize is the length of a control frame. Longer datagrams
	// are accepted, the tail is reserved.
	FrameSize = 24

	frameNameLen    = 16
	frameAxesOff    = 16
	frameButtonsOff = 22
)

// Decode parses one raw datagram into the message it carries.
// Matching follows a fixed precedence: port assignment, emergency
// stop, stop release, status update, control frame. Packets that
// are malformed or addressed to a different device are ignored
// (ok=false); Decode never fails.
func Decode(raw []byte, ownID DeviceID) (Message, bool) {
	s := string(raw)

	if strings.HasPrefix(s, "PORT:") {
		return decodePortAssignment(s[len("PORT:"):], ownID)
	}
	if s == "ESTOP" {
		return EmergencyStop{}, true
	}
	if s == "ESTOP_OFF" {
		return EmergencyStopRelease{}, true
	}
	if rest := strings.TrimPrefix(s, string(ownID)+":"); rest != s {
		if phase, ok := ParseGamePhase(rest); ok {
			return StatusUpdate{ID: ownID, Phase: phase}, true
		}
	}
	return decodeControlFrame(raw, ownID)
}

func decodePortAssignment(rest string, ownID DeviceID) (Message, bool) {
	sep := strings.IndexByte(rest, ':')
	if sep < 0 || DeviceID(rest[:sep]) != ownID {
		return nil, false
	}
	port, err := strconv.Atoi(rest[sep+1:])
	if err != nil || port <= 0 {
		return nil, false
	}
	return PortAssignment{ID: ownID, Port: port}, true
}

func decodeControlFrame(raw []byte, ownID DeviceID) (Message, bool) {
	if len(raw) < FrameSize {
		return nil, false
	}
	if frameName(raw) != ownID {
		return nil, false
	}
	return ControlFrame{
		ID: ownID,
		Axes: Axes{
			LeftX:  raw[frameAxesOff],
			LeftY:  raw[frameAxesOff+1],
			RightX: raw[frameAxesOff+2],
			RightY: raw[frameAxesOff+3],
		},
		Buttons: Buttons(raw[frameButtonsOff]),
	}, true
}

func frameName(raw []byte) DeviceID {
	name := raw[:frameNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return DeviceID(name)
}

// DecodeDiscovery parses a robot's "DISCOVER:<id>:<addr>[:<port>]"
// broadcast. Used by the station side only; robots never receive
// discovery pings.
func DecodeDiscovery(raw []byte) (DiscoveryPing, bool) {
	s := string(raw)
	if !strings.HasPrefix(s, "DISCOVER:") {
		return DiscoveryPing{}, false
	}
	parts := strings.Split(s[len("DISCOVER:"):], ":")
	if len(parts) < 2 || parts[1] == "" {
		return DiscoveryPing{}, false
	}
	ping := DiscoveryPing{ID: DeviceID(parts[0]), Addr: parts[1]}
	if !ping.ID.IsValid() {
		return DiscoveryPing{}, false
	}
	if len(parts) >= 3 {
		port, err := strconv.Atoi(parts[2])
		if err != nil || port <= 0 {
			return DiscoveryPing{}, false
		}
		ping.Port = port
	}
	return ping, true
}
