// Package solver wraps Gorgonia Solvers so that the optimiser used to
// fit a value approximator can be stored in a JSON configuration file.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// DefaultLearningRate is the learning rate of the solver returned by
// NewDefault
const DefaultLearningRate = 0.001

// configTypes maps each solver Type to the Config describing it
var configTypes = map[Type]reflect.Type{
	Adam:    reflect.TypeOf(AdamConfig{}),
	RMSProp: reflect.TypeOf(RMSPropConfig{}),
	Vanilla: reflect.TypeOf(VanillaConfig{}),
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// NewDefault returns an Adam solver with learning rate
// DefaultLearningRate which updates after each sample.
func NewDefault() *Solver {
	s, err := NewDefaultAdam(DefaultLearningRate, 1)
	if err != nil {
		panic(fmt.Sprintf("newDefault: %v", err))
	}
	return s
}

// LearningRate returns the step size of the solver
func (s *Solver) LearningRate() float64 {
	return s.Config.StepSize()
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshaljson: %v", err)
	}

	ty, ok := configTypes[raw.Type]
	if !ok {
		return fmt.Errorf("unmarshaljson: no such solver type %q", raw.Type)
	}

	value := reflect.New(ty)
	if err := json.Unmarshal(raw.Config, value.Interface()); err != nil {
		return fmt.Errorf("unmarshaljson: could not decode %v config: %v",
			raw.Type, err)
	}
	config := value.Elem().Interface().(Config)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("unmarshaljson: %v", err)
	}

	s.Type = raw.Type
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	// Validate returns an error if the hyperparameters are unusable
	Validate() error

	StepSize() float64
}
