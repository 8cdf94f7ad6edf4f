// Package remote connects agents to simulators running in another
// process over a small HTTP JSON protocol.
//
// A Server exposes any environment.Port, usually a simulator binding,
// on an address. A Client implements environment.Port against such a
// Server, optionally launching the simulator process first. The
// protocol has four endpoints:
//
//	GET  /spaces  observation and action spaces
//	POST /reset   start an episode, returns the first step
//	POST /step    apply {"action": n}, returns the next step
//	POST /close   release the simulator
package remote

import (
	"fmt"

	"github.com/samuelfneumann/wsnlearn/environment"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Endpoint paths
const (
	SpacesPath = "/spaces"
	ResetPath  = "/reset"
	StepPath   = "/step"
	ClosePath  = "/close"
)

// Spaces is the body of a /spaces response
type Spaces struct {
	Observation environment.ObservationSpace `json:"observation"`
	Action      environment.ActionSpace      `json:"action"`
}

// Action is the body of a /step request
type Action struct {
	Action int `json:"action"`
}

// Step is the body of a /reset or /step response
type Step struct {
	Observation []float64         `json:"observation"`
	Reward      float64           `json:"reward"`
	Done        bool              `json:"done"`
	Number      int               `json:"number"`
	Info        map[string]string `json:"info,omitempty"`
}

// errorBody is the body of any failed request
type errorBody struct {
	Error string `json:"error"`
}

// fromTimeStep converts a TimeStep into its wire format
func fromTimeStep(t ts.TimeStep) Step {
	var obs []float64
	if t.Observation != nil {
		obs = mat.Col(nil, 0, t.Observation)
	}
	return Step{
		Observation: obs,
		Reward:      t.Reward,
		Done:        t.Last(),
		Number:      t.Number,
		Info:        t.Info,
	}
}

// toTimeStep converts a Step into a TimeStep. The first step of an
// episode must be marked with first.
func (s Step) toTimeStep(first bool) (ts.TimeStep, error) {
	if len(s.Observation) == 0 {
		return ts.TimeStep{}, fmt.Errorf("toTimeStep: %w: empty observation",
			environment.ErrShapeMismatch)
	}

	stepType := ts.Mid
	switch {
	case first:
		stepType = ts.First
	case s.Done:
		stepType = ts.Last
	}

	obs := mat.NewVecDense(len(s.Observation), s.Observation)
	t := ts.New(stepType, s.Reward, obs, s.Number)
	t.Info = s.Info
	return t, nil
}
