package wire

import "strconv"

// Encode returns the wire form of the ping.
func (m DiscoveryPing) Encode() []byte {
	s := "DISCOVER:" + string(m.ID) + ":" + m.Addr
	if m.Port > 0 {
		s += ":" + strconv.Itoa(m.Port)
	}
	return []byte(s)
}

// Encode returns the wire form of the assignment.
func (m PortAssignment) Encode() []byte {
	return []byte("PORT:" + string(m.ID) + ":" + strconv.Itoa(m.Port))
}

// Encode returns the wire form of the stop command.
func (m EmergencyStop) Encode() []byte {
	return []byte("ESTOP")
}

// Encode returns the wire form of the release command.
func (m EmergencyStopRelease) Encode() []byte {
	return []byte("ESTOP_OFF")
}

// Encode returns the wire form of the status update.
func (m StatusUpdate) Encode() []byte {
	return []byte(string(m.ID) + ":" + m.Phase.String())
}

// Encode returns the 24-byte binary frame. IDs longer than the name
// field are truncated the way the station truncates them.
func (m ControlFrame) Encode() []byte {
	raw := make([]byte, FrameSize)
	id := string(m.ID)
	if len(id) > MaxIDLen {
		id = id[:MaxIDLen]
	}
	copy(raw, id)
	raw[frameAxesOff] = m.Axes.LeftX
	raw[frameAxesOff+1] = m.Axes.LeftY
	raw[frameAxesOff+2] = m.Axes.RightX
	raw[frameAxesOff+3] = m.Axes.RightY
	// Bytes 20 and 21 carry unused extra axes, held at center.
	raw[frameAxesOff+4] = AxisCenter
	raw[frameAxesOff+5] = AxisCenter
	raw[frameButtonsOff] = byte(m.Buttons)
	return raw
}
