// Package policy implements action selection from the predictions of a
// value approximator
package policy

import (
	"fmt"

	"github.com/samuelfneumann/wsnlearn/agent"
	"github.com/samuelfneumann/wsnlearn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// EGreedy implements an ε-greedy policy over the action values
// predicted by a ValueApproximator. With probability ε, an action is
// selected uniformly at random. Otherwise, the action with the highest
// predicted value is selected, with ties broken in favour of the lowest
// action index.
type EGreedy struct {
	approximator agent.ValueApproximator
	actions      int
	rng          *rand.Rand
}

// NewEGreedy returns a new EGreedy policy which selects actions in
// [0, approximator.Outputs()) using a random source seeded with seed
func NewEGreedy(approximator agent.ValueApproximator,
	seed uint64) *EGreedy {
	return &EGreedy{
		approximator: approximator,
		actions:      approximator.Outputs(),
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Select selects an action in state with exploration rate epsilon
func (e *EGreedy) Select(state mat.Vector, epsilon float64) (int, error) {
	if epsilon < 0 || epsilon > 1 {
		return 0, fmt.Errorf("select: epsilon out of range\n\t"+
			"want(0 ≤ ε ≤ 1)\n\thave(%v)", epsilon)
	}

	if e.rng.Float64() < epsilon {
		return e.rng.Intn(e.actions), nil
	}
	return e.Greedy(state)
}

// Greedy returns the action with the highest predicted value in state
func (e *EGreedy) Greedy(state mat.Vector) (int, error) {
	values, err := e.approximator.Predict(state)
	if err != nil {
		return 0, fmt.Errorf("greedy: %w", err)
	}
	if len(values) != e.actions {
		return 0, fmt.Errorf("greedy: invalid number of action values\n\t"+
			"want(%v)\n\thave(%v)", e.actions, len(values))
	}

	_, indices := floatutils.MaxSlice(values)
	return indices[0], nil
}
