// Package network implements neural network function approximators
// built on Gorgonia computational graphs.
package network

import (
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network that populates a Gorgonia ExprGraph
// and predicts one value per output head for a single input vector.
//
// A NeuralNet does not run its own graph. An external VM should be
// used to run the graph after the input has been set with SetInput().
// After the VM has been run, Output() holds the network's predictions.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	Features() int
	Outputs() int
	SetInput(mat.Vector) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
