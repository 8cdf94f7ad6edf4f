//go:build gym

// Package gym binds OpenAI Gym environments with discrete action spaces
// as environment.Ports, so that an agent can be tested on a standard
// task before being attached to a network simulator.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym, which require a
// Python installation. The package is therefore only built with the
// gym build tag.
package gym

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/gogym"
	"github.com/samuelfneumann/wsnlearn/environment"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
	"gonum.org/v1/gonum/mat"
)

func init() {
	environment.Register(environment.Gym, func(c environment.Config) (
		environment.Port, error) {
		return New(c.EnvID, c.Seed)
	})
}

// Env implements environment.Port for an OpenAI Gym environment
type Env struct {
	env gogym.Environment

	obs    environment.ObservationSpace
	action environment.ActionSpace

	number int
	closed bool
}

// New returns a new Env for the Gym environment with the given name,
// which must have a discrete action space
func New(name string, seed uint64) (*Env, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}
	goGymEnv.Seed(int(seed))

	obs, err := observationSpace(goGymEnv.ObservationSpace())
	if err != nil {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: %v", err)
	}
	action, err := actionSpace(goGymEnv.ActionSpace())
	if err != nil {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Env{env: goGymEnv, obs: obs, action: action}, nil
}

// ObservationSpace implements the environment.Port interface
func (g *Env) ObservationSpace() environment.ObservationSpace {
	return g.obs
}

// ActionSpace implements the environment.Port interface
func (g *Env) ActionSpace() environment.ActionSpace {
	return g.action
}

// Reset implements the environment.Port interface
func (g *Env) Reset(ctx context.Context) (ts.TimeStep, error) {
	if g.closed {
		return ts.TimeStep{}, environment.CommunicationError("reset",
			environment.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return ts.TimeStep{}, err
	}

	obs, err := g.env.Reset()
	if err != nil {
		return ts.TimeStep{}, environment.CommunicationError("reset", err)
	}
	g.number = 0
	return ts.New(ts.First, 0, obs, g.number), nil
}

// Step implements the environment.Port interface. Actions are passed
// to Gym as a single-element vector holding the action index.
func (g *Env) Step(ctx context.Context, action int) (ts.TimeStep, error) {
	if g.closed {
		return ts.TimeStep{}, environment.CommunicationError("step",
			environment.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return ts.TimeStep{}, err
	}
	if !g.action.Contains(action) {
		return ts.TimeStep{}, fmt.Errorf("step: %w\n\twant([0, %v))\n\t"+
			"have(%v)", environment.ErrInvalidAction, g.action.N, action)
	}

	a := mat.NewVecDense(1, []float64{float64(action)})
	obs, reward, done, err := g.env.Step(a)
	if err != nil {
		return ts.TimeStep{}, environment.CommunicationError("step", err)
	}
	g.number++

	t := ts.New(ts.Mid, reward, obs, g.number)
	if done {
		t.StepType = ts.Last
	}
	return t, nil
}

// Close implements the environment.Port interface
func (g *Env) Close() error {
	if g.closed {
		return environment.ErrClosed
	}
	g.closed = true
	g.env.Close()
	return nil
}

// space is the subset of a GoGym space used to describe it
type space interface {
	Low() []*mat.VecDense
	High() []*mat.VecDense
}

// observationSpace converts a GoGym space into an ObservationSpace
func observationSpace(s space) (environment.ObservationSpace, error) {
	switch s.(type) {
	case *gogym.BoxSpace, *gogym.DiscreteSpace:
		low, high := s.Low()[0], s.High()[0]
		return environment.ObservationSpace{
			Shape: low.Len(),
			Dtype: environment.Float64,
			Low:   mat.Col(nil, 0, low),
			High:  mat.Col(nil, 0, high),
		}, nil

	default:
		return environment.ObservationSpace{}, fmt.Errorf("observationSpace:"+
			" unsupported space type %T", s)
	}
}

// actionSpace converts a GoGym discrete space into an ActionSpace. The
// upper bound of a discrete space is the largest action index.
func actionSpace(s space) (environment.ActionSpace, error) {
	if _, ok := s.(*gogym.DiscreteSpace); !ok {
		return environment.ActionSpace{}, fmt.Errorf("actionSpace: only "+
			"discrete action spaces are supported, have %T", s)
	}
	n := int(s.High()[0].AtVec(0)) + 1
	return environment.NewDiscrete(n), nil
}
