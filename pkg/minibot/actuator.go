package minibot

// Mapper converts normalized command values into PWM duty-cycle
// values using the 1.5 ms center pulse convention. It is a pure
// value type; channel count and bit width are configuration, not
// forked code paths.
type Mapper struct {
	// FreqHz is the PWM carrier frequency.
	FreqHz int
	// ResolutionBits is the duty register width.
	ResolutionBits uint
}

// Hardware defaults matching the stock peripheral setup.
const (
	DefaultFreqHz         = 100
	DefaultResolutionBits = 16
)

// Servo angular range in degrees.
const (
	ServoAngleMin = -50.0
	ServoAngleMax = 50.0
)

const neutralPulseMs = 1.5

// NewMapper creates a Mapper with the default 100 Hz / 16-bit setup.
func NewMapper() Mapper {
	return Mapper{FreqHz: DefaultFreqHz, ResolutionBits: DefaultResolutionBits}
}

// DutyFor maps a command value on a channel to a duty-cycle value.
// Drive and aux channels take values in [-1, 1]; the servo channel
// takes an angle in [-50, 50] degrees. Out-of-domain values are
// rejected (ok=false) and the caller must hold its previous or
// neutral output.
func (m Mapper) DutyFor(ch Channel, value float64) (duty uint32, ok bool) {
	var pulseMs float64
	switch ch {
	case LeftDrive, RightDrive, AuxMotor:
		if value < -1 || value > 1 {
			return 0, false
		}
		pulseMs = neutralPulseMs + 0.5*value
	case Servo:
		if value < ServoAngleMin || value > ServoAngleMax {
			return 0, false
		}
		pulseMs = neutralPulseMs + 0.01*value
	default:
		return 0, false
	}
	return m.dutyForPulse(pulseMs), true
}

// NeutralDuty is the mandatory fail-safe output: the duty of a
// 1.5 ms pulse.
func (m Mapper) NeutralDuty() uint32 {
	return m.dutyForPulse(neutralPulseMs)
}

func (m Mapper) dutyForPulse(pulseMs float64) uint32 {
	periodMs := 1000.0 / float64(m.FreqHz)
	maxDuty := float64(uint32(1)<<m.ResolutionBits - 1)
	return uint32(pulseMs / periodMs * maxDuty)
}
