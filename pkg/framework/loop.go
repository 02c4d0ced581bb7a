package framework

import (
	"context"
	"log"
	"time"

	"github.com/golang/glog"
)

// Loop paces Steppers at a fixed interval. All Steppers run on the
// loop goroutine; anything they own needs no further synchronization.
// Background Runnables (sockets, brokers) run alongside and stop when
// the loop context is canceled.
type Loop struct {
	Interval time.Duration

	steppers []Stepper
	runners  []Runnable
}

// DefaultInterval is the pacing used when none is configured.
const DefaultInterval = 20 * time.Millisecond

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddStepper registers Steppers, stepped in registration order.
func (l *Loop) AddStepper(steppers ...Stepper) *Loop {
	l.steppers = append(l.steppers, steppers...)
	for _, s := range steppers {
		if runner, ok := s.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementations.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			for _, s := range l.steppers {
				if err := s.Step(ctx, now); err != nil {
					glog.Errorf("step error: %v", err)
				}
			}
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop
// until interrupted.
func (l *Loop) RunOrFail() {
	runner := NewRunner().HandleSignals()
	runner.Go(l)
	if err := runner.Wait(); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}
