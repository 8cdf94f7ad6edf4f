// Package qlearning implements the online Q-learning update of a value
// approximator from single transitions.
package qlearning

import (
	"fmt"

	"github.com/samuelfneumann/wsnlearn/agent"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
	"github.com/samuelfneumann/wsnlearn/utils/floatutils"
)

// DefaultGamma is the default discount factor
const DefaultGamma = 0.95

// Trainer updates a ValueApproximator toward the Q-learning target
//
//	r + γ max_a' Q(s', a')
//
// of each transition, or toward r if the transition ends the episode.
type Trainer struct {
	approximator agent.ValueApproximator
	gamma        float64
}

// New returns a new Trainer with discount factor gamma
func New(approximator agent.ValueApproximator, gamma float64) (*Trainer,
	error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("new: discount out of range\n\t"+
			"want(0 ≤ γ ≤ 1)\n\thave(%v)", gamma)
	}
	return &Trainer{approximator: approximator, gamma: gamma}, nil
}

// Gamma returns the discount factor
func (q *Trainer) Gamma() float64 {
	return q.gamma
}

// Target returns the scalar update target of the transition
func (q *Trainer) Target(t ts.Transition) (float64, error) {
	if t.Done {
		return t.Reward, nil
	}

	next, err := q.approximator.Predict(t.NextState)
	if err != nil {
		return 0, fmt.Errorf("target: %w", err)
	}
	maxNext, _ := floatutils.MaxSlice(next)

	return t.Reward + q.gamma*maxNext, nil
}

// Update fits the approximator's prediction of the taken action in the
// transition's state toward the update target. The values of actions
// not taken are used as their own targets. The TD error of the taken
// action before the update is returned.
func (q *Trainer) Update(t ts.Transition) (float64, error) {
	if t.Action < 0 || t.Action >= q.approximator.Outputs() {
		return 0, fmt.Errorf("update: action out of range\n\t"+
			"want([0, %v))\n\thave(%v)", q.approximator.Outputs(), t.Action)
	}

	target, err := q.Target(t)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}

	values, err := q.approximator.Predict(t.State)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	tdError := target - values[t.Action]
	values[t.Action] = target

	if err := q.approximator.FitOne(t.State, values); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return tdError, nil
}
