package minibot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDutyForDrive(t *testing.T) {
	m := NewMapper()

	testCases := []struct {
		name  string
		value float64
		duty  uint32
		ok    bool
	}{
		{"full reverse", -1, 6553, true}, // 1.0 ms pulse
		{"neutral", 0, 9830, true},       // 1.5 ms pulse
		{"full forward", 1, 13107, true}, // 2.0 ms pulse
		{"over range", 1.5, 0, false},
		{"under range", -2, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, ch := range []Channel{LeftDrive, RightDrive, AuxMotor} {
				duty, ok := m.DutyFor(ch, tc.value)
				require.Equal(t, tc.ok, ok)
				require.Equal(t, tc.duty, duty)
			}
		})
	}
}

func TestDutyForDriveMonotonic(t *testing.T) {
	m := NewMapper()
	prev, ok := m.DutyFor(LeftDrive, -1)
	require.True(t, ok)
	for value := -0.9; value <= 1; value += 0.1 {
		duty, ok := m.DutyFor(LeftDrive, value)
		require.True(t, ok)
		require.True(t, duty > prev, "duty not increasing at %v", value)
		prev = duty
	}
}

func TestDutyForServo(t *testing.T) {
	m := NewMapper()

	duty, ok := m.DutyFor(Servo, 0)
	require.True(t, ok)
	require.Equal(t, m.NeutralDuty(), duty)

	duty, ok = m.DutyFor(Servo, 50)
	require.True(t, ok)
	require.Equal(t, uint32(13107), duty) // 2.0 ms pulse

	duty, ok = m.DutyFor(Servo, -50)
	require.True(t, ok)
	require.Equal(t, uint32(6553), duty) // 1.0 ms pulse

	_, ok = m.DutyFor(Servo, 60)
	require.False(t, ok)
	_, ok = m.DutyFor(Servo, -50.5)
	require.False(t, ok)
}

func TestDutyForInvalidChannel(t *testing.T) {
	m := NewMapper()
	_, ok := m.DutyFor(NumChannels, 0)
	require.False(t, ok)
}

func TestNeutralDuty(t *testing.T) {
	// 1.5 ms of a 10 ms period at 16 bits.
	require.Equal(t, uint32(9830), NewMapper().NeutralDuty())
	// Parameterized setups scale accordingly: 50 Hz, 12 bits.
	m := Mapper{FreqHz: 50, ResolutionBits: 12}
	require.Equal(t, uint32(307), m.NeutralDuty())
}
