package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Stepper performs one cooperative control-loop step.
// Implementations must not block waiting for external input;
// an absent datagram or event is a no-op step.
type Stepper interface {
	Step(ctx context.Context, now time.Time) error
}

// StepFunc is the func form of Stepper.
type StepFunc func(context.Context, time.Time) error

// Step implements Stepper.
func (f StepFunc) Step(ctx context.Context, now time.Time) error {
	return f(ctx, now)
}

// LoopAdder provides specific logic to add components to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
