// Package environment outlines the interfaces and structs needed to
// connect the agent to step-based network simulators.
//
// The agent never sees the simulator itself. It only uses the Port
// contract: reset, step, the observation and action spaces, and close.
// Any simulator binding implementing Port is interchangeable, and
// bindings are selected by name through the backend registry (see
// Register and Config.Create).
package environment

import (
	"context"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

// Port implements the interaction contract with a simulated environment
type Port interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset(ctx context.Context) (ts.TimeStep, error)

	// Step advances simulated time by one control interval using the
	// argument action. The returned TimeStep is Last() if the episode
	// has terminated.
	Step(ctx context.Context, action int) (ts.TimeStep, error)

	ObservationSpace() ObservationSpace
	ActionSpace() ActionSpace

	// Close releases the simulator connection. Close must be called
	// exactly once.
	Close() error
}

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end. If End returns true, it
// will also have changed the StepType of the argument to timestep.Last
type Ender interface {
	End(*ts.TimeStep) bool
}
