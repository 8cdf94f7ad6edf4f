package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Architecture describes the layers of an MLP. Hidden[i] is the number
// of units in hidden layer i, Biases[i] whether it has a bias unit and
// Activations[i] its activation. The output layer always has a bias
// unit, and its activation is Output, or the identity if Output is nil.
type Architecture struct {
	Hidden      []int
	Biases      []bool
	Activations []*Activation
	Output      *Activation
}

// Validate returns an error if the Architecture is inconsistent
func (a Architecture) Validate() error {
	if len(a.Biases) != len(a.Hidden) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%d)"+
			"\n\thave(%d)", len(a.Hidden), len(a.Biases))
	}
	if len(a.Activations) != len(a.Hidden) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(a.Hidden), len(a.Activations))
	}
	for i, units := range a.Hidden {
		if units < 1 {
			return fmt.Errorf("validate: hidden layer %d must have positive"+
				" size\n\twant(>0)\n\thave(%d)", i, units)
		}
	}
	return nil
}

// MLP is a multi-layered perceptron with one output head per value
// that should be predicted, such as one head per action.
type MLP struct {
	g      *G.ExprGraph
	input  *G.Node
	layers []*layer
	arch   Architecture

	features, outputs int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP adds a new MLP with features inputs and outputs output heads
// to the graph g. Weights are initialized with init and biases with
// zeroes.
func NewMLP(g *G.ExprGraph, features, outputs int, arch Architecture,
	init G.InitWFn) (*MLP, error) {
	if features < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMLP: features and outputs must be "+
			"positive\n\twant(>0, >0)\n\thave(%d, %d)", features, outputs)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}
	if arch.Output == nil {
		arch.Output = Identity()
	}

	layers := make([]*layer, 0, len(arch.Hidden)+1)
	in := features
	for i, units := range arch.Hidden {
		layers = append(layers, newLayer(g, i, in, units, arch.Biases[i],
			arch.Activations[i], init))
		in = units
	}
	layers = append(layers, newLayer(g, len(arch.Hidden), in, outputs, true,
		arch.Output, init))

	return build(g, features, outputs, layers, arch)
}

// build connects the input of a new MLP to its layers
func build(g *G.ExprGraph, features, outputs int, layers []*layer,
	arch Architecture) (*MLP, error) {
	net := &MLP{
		g:        g,
		layers:   layers,
		arch:     arch,
		features: features,
		outputs:  outputs,
		input: G.NewMatrix(g, tensor.Float64, G.WithShape(1, features),
			G.WithName("input"), G.WithInit(G.Zeroes())),
	}

	pred := net.input
	var err error
	for i, l := range layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("build: could not compute forward pass "+
				"of layer %d: %v", i, err)
		}
		net.learnables = append(net.learnables, l.learnables()...)
	}
	net.prediction = pred
	G.Read(net.prediction, &net.predVal)
	net.model = G.NodesToValueGrads(net.learnables)

	return net, nil
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph { return m.g }

// Features returns the size of the input vector
func (m *MLP) Features() int { return m.features }

// Outputs returns the number of output heads
func (m *MLP) Outputs() int { return m.outputs }

// Architecture returns the layer configuration of the MLP
func (m *MLP) Architecture() Architecture { return m.arch }

// Clone copies the MLP, with its current weights, to a new graph
func (m *MLP) Clone() (NeuralNet, error) {
	g := G.NewGraph()
	layers := make([]*layer, len(m.layers))
	for i, l := range m.layers {
		layers[i] = l.cloneTo(g)
	}

	net, err := build(g, m.features, m.outputs, layers, m.arch)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	return net, nil
}

// SetInput sets the value of the input node before running the forward
// pass
func (m *MLP) SetInput(input mat.Vector) error {
	if input.Len() != m.features {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.features, input.Len())
	}
	value := tensor.New(
		tensor.WithBacking(mat.Col(nil, 0, input)),
		tensor.WithShape(1, m.features),
	)
	return G.Let(m.input, value)
}

// Set sets the weights of the MLP to copies of the weights of source
func (m *MLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	if len(sourceNodes) != len(m.learnables) {
		return fmt.Errorf("set: incompatible networks\n\twant(%v learnables)"+
			"\n\thave(%v learnables)", len(m.learnables), len(sourceNodes))
	}

	for i, node := range m.learnables {
		value := sourceNodes[i].Value().(*tensor.Dense).Clone().(*tensor.Dense)
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("set: could not set learnable %v: %v", i, err)
		}
	}
	return nil
}

// Learnables returns the weight and bias nodes of each layer in order
func (m *MLP) Learnables() G.Nodes { return m.learnables }

// Model returns the learnable nodes with their gradients
func (m *MLP) Model() []G.ValueGrad { return m.model }

// Output returns the output of the MLP from the last run of its graph
func (m *MLP) Output() G.Value { return m.predVal }

// Prediction returns the output node of the MLP
func (m *MLP) Prediction() *G.Node { return m.prediction }

// mlpGob is the gob encoded form of an MLP
type mlpGob struct {
	Features, Outputs int
	Arch              Architecture
	Weights           [][]float64
}

// GobEncode implements the gob.GobEncoder interface. Only the
// architecture and weights are encoded.
func (m *MLP) GobEncode() ([]byte, error) {
	data := mlpGob{
		Features: m.features,
		Outputs:  m.outputs,
		Arch:     m.arch,
		Weights:  make([][]float64, len(m.learnables)),
	}
	for i, node := range m.learnables {
		data.Weights[i] = node.Value().Data().([]float64)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *MLP) GobDecode(in []byte) error {
	var data mlpGob
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&data); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	net, err := NewMLP(G.NewGraph(), data.Features, data.Outputs, data.Arch,
		G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	if len(data.Weights) != len(net.learnables) {
		return fmt.Errorf("gobDecode: invalid number of learnables\n\t"+
			"want(%v)\n\thave(%v)", len(net.learnables), len(data.Weights))
	}

	for i, node := range net.learnables {
		value := tensor.New(
			tensor.WithShape(node.Shape()...),
			tensor.WithBacking(data.Weights[i]),
		)
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("gobDecode: could not set learnable %v: %v",
				i, err)
		}
	}

	*m = *net
	return nil
}

// Decode decodes an MLP that was encoded with gob
func Decode(in []byte) (*MLP, error) {
	net := &MLP{}
	if err := net.GobDecode(in); err != nil {
		return nil, err
	}
	return net, nil
}
