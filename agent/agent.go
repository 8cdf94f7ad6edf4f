// Package agent defines the interfaces of the learning core: value
// function approximators, action selection policies and learners.
//
// A ValueApproximator maps a state to one estimated value per action. A
// Policy chooses actions using the approximator, and a Learner uses the
// transitions generated by the Policy to update the approximator. The
// Policy and Learner of an agent share the same approximator so that
// any changes the Learner makes to the weights are reflected in the
// actions the Policy chooses.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/wsnlearn/environment"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

// ErrShapeMismatch is returned when a state's dimensionality disagrees
// with the approximator's expected input size. States are never
// silently reshaped.
var ErrShapeMismatch = environment.ErrShapeMismatch

// ValueApproximator is a parametric function mapping a state vector to
// a vector of estimated action values, one per action.
type ValueApproximator interface {
	// Predict returns the estimated value of each action in state. It
	// has no side effects.
	Predict(state mat.Vector) ([]float64, error)

	// FitOne performs a single, single-sample update of the parameters
	// towards target. Only the action slots where target differs from
	// the current prediction contribute to the update.
	FitOne(state mat.Vector, target []float64) error

	// Features returns the number of state features, s_size
	Features() int

	// Outputs returns the number of actions, a_size
	Outputs() int
}

// Policy chooses actions
type Policy interface {
	// Select returns an action in [0, a_size) for state, exploring
	// with probability epsilon
	Select(state mat.Vector, epsilon float64) (int, error)
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Update performs a single update using the argument transition
	// and returns the TD error of the transition before the update
	Update(t ts.Transition) (float64, error)
}
