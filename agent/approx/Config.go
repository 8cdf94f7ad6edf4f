// Package approx implements action-value approximators which map a
// state feature vector to one value estimate per discrete action.
package approx

import (
	"fmt"

	"github.com/samuelfneumann/wsnlearn/agent"
	"github.com/samuelfneumann/wsnlearn/initwfn"
	"github.com/samuelfneumann/wsnlearn/network"
	"github.com/samuelfneumann/wsnlearn/solver"
)

// Type names a kind of value approximator
type Type string

const (
	TypeMLP    Type = "MLP"
	TypeLinear Type = "Linear"
)

// OutputType determines the output layer of an MLP and the loss it is
// trained with
type OutputType string

const (
	// OutputLinear is an unconstrained output layer trained with the
	// mean squared error
	OutputLinear OutputType = "Linear"

	// OutputSoftmax normalizes the outputs into a categorical
	// distribution and trains with the categorical cross-entropy
	// against the target vector
	OutputSoftmax OutputType = "Softmax"
)

// DefaultLinearLearningRate is the step size of the Linear approximator
// in DefaultConfig
const DefaultLinearLearningRate = 0.01

// Config describes a value approximator.
//
// For MLPs, a nil Hidden slice results in a single hidden layer with as
// many units as there are features, while an empty non-nil slice
// results in a network with no hidden layers. Nil Biases and
// Activations default to a bias unit and ReLU activation in each
// hidden layer.
type Config struct {
	Type Type

	// MLP configuration
	Hidden      []int
	Biases      []bool
	Activations []*network.Activation
	Output      OutputType
	Solver      *solver.Solver
	InitWFn     *initwfn.InitWFn

	// Linear configuration
	LearningRate float64
}

// DefaultConfig returns the default approximator configuration: an MLP
// with one ReLU hidden layer and a linear output trained with Adam.
func DefaultConfig() Config {
	return Config{
		Type:         TypeMLP,
		Output:       OutputLinear,
		Solver:       solver.NewDefault(),
		InitWFn:      initwfn.Default(),
		LearningRate: DefaultLinearLearningRate,
	}
}

// Validate returns an error if the Config cannot be used to create an
// approximator
func (c Config) Validate() error {
	switch c.Type {
	case TypeMLP:
	case TypeLinear:
		if c.LearningRate <= 0 {
			return fmt.Errorf("validate: linear learning rate must be "+
				"positive\n\twant(>0)\n\thave(%v)", c.LearningRate)
		}
		return nil
	default:
		return fmt.Errorf("validate: unknown approximator type %q", c.Type)
	}

	if c.Output != OutputLinear && c.Output != OutputSoftmax {
		return fmt.Errorf("validate: unknown output type %q", c.Output)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: mlp requires a solver")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: mlp requires a weight initializer")
	}

	if c.Hidden == nil {
		if c.Biases != nil || c.Activations != nil {
			return fmt.Errorf("validate: biases and activations given " +
				"without hidden layer sizes")
		}
		return nil
	}
	for i, size := range c.Hidden {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %d must have "+
				"positive size\n\twant(>0)\n\thave(%v)", i, size)
		}
	}
	if c.Biases != nil && len(c.Biases) != len(c.Hidden) {
		return fmt.Errorf("validate: invalid number of biases\n\t"+
			"want(%v)\n\thave(%v)", len(c.Hidden), len(c.Biases))
	}
	if c.Activations != nil && len(c.Activations) != len(c.Hidden) {
		return fmt.Errorf("validate: invalid number of activations\n\t"+
			"want(%v)\n\thave(%v)", len(c.Hidden), len(c.Activations))
	}
	return nil
}

// layers returns the hidden layer sizes, biases and activations of
// the MLP for the given number of features
func (c Config) layers(features int) ([]int, []bool, []*network.Activation) {
	hidden := c.Hidden
	if hidden == nil {
		hidden = []int{features}
	}

	biases := c.Biases
	if biases == nil {
		biases = make([]bool, len(hidden))
		for i := range biases {
			biases[i] = true
		}
	}

	activations := c.Activations
	if activations == nil {
		activations = make([]*network.Activation, len(hidden))
		for i := range activations {
			activations[i] = network.ReLU()
		}
	}

	return hidden, biases, activations
}

// Create returns a new value approximator mapping features inputs to
// outputs action values
func (c Config) Create(features, outputs int) (agent.ValueApproximator,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Type {
	case TypeLinear:
		return NewLinear(features, outputs, c.LearningRate)

	default:
		hidden, biases, activations := c.layers(features)
		return NewMLP(features, outputs, hidden, biases, activations,
			c.Output, c.InitWFn, c.Solver)
	}
}
