package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dtype describes the element type a simulator reports observations in.
// Observations are always converted to float64 before reaching the
// agent.
type Dtype string

const (
	Float32 Dtype = "float32"
	Float64 Dtype = "float64"
	Uint32  Dtype = "uint32"
)

// ObservationSpace describes the shape and bounds of the observations
// an environment produces. Shape is the number of features, s_size.
type ObservationSpace struct {
	Shape int
	Dtype Dtype
	Low   []float64
	High  []float64
}

// NewBox returns a new ObservationSpace with shape features, each
// bounded in [low, high]
func NewBox(shape int, low, high float64, dtype Dtype) ObservationSpace {
	lows := make([]float64, shape)
	highs := make([]float64, shape)
	for i := range lows {
		lows[i] = low
		highs[i] = high
	}
	return ObservationSpace{Shape: shape, Dtype: dtype, Low: lows, High: highs}
}

// Validate returns an error if the ObservationSpace is malformed
func (o ObservationSpace) Validate() error {
	if o.Shape < 1 {
		return fmt.Errorf("validate: observation shape must be positive"+
			"\n\twant(>0)\n\thave(%v)", o.Shape)
	}
	if o.Low != nil && len(o.Low) != o.Shape {
		return fmt.Errorf("validate: lower bound length must match shape"+
			"\n\twant(%v)\n\thave(%v)", o.Shape, len(o.Low))
	}
	if o.High != nil && len(o.High) != o.Shape {
		return fmt.Errorf("validate: upper bound length must match shape"+
			"\n\twant(%v)\n\thave(%v)", o.Shape, len(o.High))
	}
	return nil
}

// Conforms returns ErrShapeMismatch if the argument observation does
// not have exactly Shape features
func (o ObservationSpace) Conforms(obs mat.Vector) error {
	if obs == nil {
		return fmt.Errorf("conforms: nil observation: %w", ErrShapeMismatch)
	}
	if obs.Len() != o.Shape {
		return fmt.Errorf("conforms: %w\n\twant(%v)\n\thave(%v)",
			ErrShapeMismatch, o.Shape, obs.Len())
	}
	return nil
}

func (o ObservationSpace) String() string {
	return fmt.Sprintf("Box(%v, %v)", o.Shape, o.Dtype)
}

// ActionSpace describes a discrete set of N actions enumerated from 0
type ActionSpace struct {
	N int
}

// NewDiscrete returns a new ActionSpace of n actions
func NewDiscrete(n int) ActionSpace {
	return ActionSpace{N: n}
}

// Contains returns whether action is a legal action in the space
func (a ActionSpace) Contains(action int) bool {
	return action >= 0 && action < a.N
}

// Validate returns an error if the ActionSpace is malformed
func (a ActionSpace) Validate() error {
	if a.N < 1 {
		return fmt.Errorf("validate: number of actions must be positive"+
			"\n\twant(>0)\n\thave(%v)", a.N)
	}
	return nil
}

func (a ActionSpace) String() string {
	return fmt.Sprintf("Discrete(%v)", a.N)
}
