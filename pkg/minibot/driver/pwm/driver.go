// Package pwm provides actuation backends. The simulated driver
// stands in for the hardware PWM peripheral: it records duty writes
// per channel and traces them, which is all a robot needs when
// developing against the station without motors attached.
package pwm

import (
	"github.com/golang/glog"

	"github.com/lancerbots/minibot.go/pkg/minibot"
)

// Sim is a simulated ActuationDriver. A single loop goroutine is
// the only writer; Duty is for inspection from the same context.
type Sim struct {
	duties [minibot.NumChannels]uint32
}

// NewSim creates a simulated driver.
func NewSim() *Sim {
	return &Sim{}
}

// WriteDuty implements ActuationDriver.
func (d *Sim) WriteDuty(ch minibot.Channel, duty uint32) error {
	if ch < 0 || ch >= minibot.NumChannels {
		return nil
	}
	if d.duties[ch] != duty {
		glog.V(1).Infof("pwm %s duty=%d", ch, duty)
	}
	d.duties[ch] = duty
	return nil
}

// Duty returns the last duty written to the channel.
func (d *Sim) Duty(ch minibot.Channel) uint32 {
	if ch < 0 || ch >= minibot.NumChannels {
		return 0
	}
	return d.duties[ch]
}
