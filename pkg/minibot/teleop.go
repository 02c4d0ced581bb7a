package minibot

import (
	"context"
	"time"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// TeleopMixer is the stock drive mapping: tank drive on the stick Y
// axes, aux motor on the right X axis, servo snapped by the square
// and triangle buttons. It runs after the session step so it always
// sees this tick's inputs, and it relies on Drive's gating for
// estop and connection state.
type TeleopMixer struct {
	Session *Session
}

// AddToLoop implements LoopAdder.
func (m *TeleopMixer) AddToLoop(loop *fx.Loop) {
	loop.AddStepper(m)
}

// Step implements Stepper.
func (m *TeleopMixer) Step(ctx context.Context, now time.Time) error {
	s := m.Session
	if s.Phase() != wire.PhaseTeleop || !s.CanActuate() {
		return nil
	}
	axes, buttons := s.Axes(), s.Buttons()
	// Stick up reads low on the wire, so Y axes are inverted.
	s.Drive(LeftDrive, -StickValue(axes.LeftY))
	s.Drive(RightDrive, -StickValue(axes.RightY))
	s.Drive(AuxMotor, StickValue(axes.RightX))
	s.Drive(Servo, servoAngle(buttons))
	return nil
}

// StickValue maps a raw axis byte onto [-1, 1].
func StickValue(raw uint8) float64 {
	return (float64(raw) - 127.5) / 127.5
}

func servoAngle(buttons wire.Buttons) float64 {
	switch {
	case buttons.Has(wire.ButtonSquare):
		return ServoAngleMin
	case buttons.Has(wire.ButtonTriangle):
		return ServoAngleMax
	}
	return 0
}
