package approx

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/wsnlearn/agent"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear approximates action values as a linear function of the state
// features, with one row of weights and one bias per action. Weights
// are zero initialized and adapted with stochastic gradient descent on
// the squared error.
type Linear struct {
	weights      *mat.Dense    // outputs × features
	bias         *mat.VecDense // outputs
	learningRate float64
}

// NewLinear returns a new Linear value approximator
func NewLinear(features, outputs int, learningRate float64) (*Linear,
	error) {
	if features < 1 || outputs < 1 {
		return nil, fmt.Errorf("newLinear: features and outputs must be "+
			"positive\n\twant(>0, >0)\n\thave(%v, %v)", features, outputs)
	}
	if learningRate <= 0 {
		return nil, fmt.Errorf("newLinear: learning rate must be positive"+
			"\n\twant(>0)\n\thave(%v)", learningRate)
	}

	return &Linear{
		weights:      mat.NewDense(outputs, features, nil),
		bias:         mat.NewVecDense(outputs, nil),
		learningRate: learningRate,
	}, nil
}

// Features returns the number of state features
func (l *Linear) Features() int {
	_, c := l.weights.Dims()
	return c
}

// Outputs returns the number of action values predicted
func (l *Linear) Outputs() int {
	r, _ := l.weights.Dims()
	return r
}

// Predict returns the predicted action values in state
func (l *Linear) Predict(state mat.Vector) ([]float64, error) {
	if state.Len() != l.Features() {
		return nil, fmt.Errorf("predict: %w\n\twant(%v)\n\thave(%v)",
			agent.ErrShapeMismatch, l.Features(), state.Len())
	}

	values := mat.NewVecDense(l.Outputs(), nil)
	values.MulVec(l.weights, state)
	values.AddVec(values, l.bias)

	return values.RawVector().Data, nil
}

// FitOne takes a single gradient step on the squared error between the
// predicted action values in state and target
func (l *Linear) FitOne(state mat.Vector, target []float64) error {
	if len(target) != l.Outputs() {
		return fmt.Errorf("fitOne: %w: invalid target length\n\twant(%v)"+
			"\n\thave(%v)", agent.ErrShapeMismatch, l.Outputs(), len(target))
	}
	values, err := l.Predict(state)
	if err != nil {
		return fmt.Errorf("fitOne: %w", err)
	}

	features := mat.Col(nil, 0, state)
	for i := range values {
		δ := target[i] - values[i]
		if δ == 0 {
			continue
		}
		floats.AddScaled(l.weights.RawRowView(i), l.learningRate*δ, features)
		l.bias.SetVec(i, l.bias.AtVec(i)+l.learningRate*δ)
	}
	return nil
}

// linearGob is the encoded form of a Linear approximator
type linearGob struct {
	Weights      *mat.Dense
	Bias         *mat.VecDense
	LearningRate float64
}

// GobEncode implements the gob.GobEncoder interface
func (l *Linear) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(linearGob{
		Weights:      l.weights,
		Bias:         l.bias,
		LearningRate: l.learningRate,
	})
	if err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (l *Linear) GobDecode(in []byte) error {
	var decoded linearGob
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&decoded); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}
	l.weights = decoded.Weights
	l.bias = decoded.Bias
	l.learningRate = decoded.LearningRate
	return nil
}
