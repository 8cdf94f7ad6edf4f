package approx

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/samuelfneumann/wsnlearn/agent"
	"github.com/samuelfneumann/wsnlearn/initwfn"
	"github.com/samuelfneumann/wsnlearn/network"
	"github.com/samuelfneumann/wsnlearn/solver"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP approximates action values with a multi-layered perceptron that
// has one output head per action.
//
// Two copies of the network are kept. The prediction network takes a
// single state and is used by Predict. The training network shares the
// architecture, holds the loss and its gradient, and is adapted by the
// solver in FitOne. After each update, the prediction network's weights
// are set to those of the training network.
type MLP struct {
	net   network.NeuralNet
	netVM G.VM

	trainNet   network.NeuralNet
	trainNetVM G.VM
	target     *G.Node
	loss       *G.Node
	lossVal    G.Value

	solver *solver.Solver
	output OutputType
}

// NewMLP returns a new MLP value approximator
func NewMLP(features, outputs int, hidden []int, biases []bool,
	activations []*network.Activation, output OutputType,
	init *initwfn.InitWFn, s *solver.Solver) (*MLP, error) {
	outputAct := network.Identity()
	if output == OutputSoftmax {
		outputAct = network.Softmax()
	}

	arch := network.Architecture{
		Hidden:      hidden,
		Biases:      biases,
		Activations: activations,
		Output:      outputAct,
	}
	net, err := network.NewMLP(G.NewGraph(), features, outputs, arch,
		init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}

	return newMLP(net, output, s)
}

// newMLP builds the training graph of an MLP around an existing
// prediction network
func newMLP(net network.NeuralNet, output OutputType,
	s *solver.Solver) (*MLP, error) {
	trainNet, err := net.Clone()
	if err != nil {
		return nil, fmt.Errorf("newMLP: could not create training network: "+
			"%v", err)
	}
	g := trainNet.Graph()

	target := G.NewMatrix(g, tensor.Float64,
		G.WithShape(1, trainNet.Outputs()), G.WithName("target"),
		G.WithInit(G.Zeroes()))

	var loss *G.Node
	switch output {
	case OutputSoftmax:
		// Categorical cross-entropy, H(target, prediction)
		logProbs := G.Must(G.Log(trainNet.Prediction()))
		loss = G.Must(G.HadamardProd(target, logProbs))
		loss = G.Must(G.Neg(G.Must(G.Sum(loss))))

	default:
		loss = G.Must(G.Sub(trainNet.Prediction(), target))
		loss = G.Must(G.Square(loss))
		loss = G.Must(G.Mean(loss))
	}

	mlp := &MLP{
		net:      net,
		netVM:    G.NewTapeMachine(net.Graph()),
		trainNet: trainNet,
		target:   target,
		loss:     loss,
		solver:   s,
		output:   output,
	}
	G.Read(loss, &mlp.lossVal)

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute gradient: %v", err)
	}
	mlp.trainNetVM = G.NewTapeMachine(g,
		G.BindDualValues(trainNet.Learnables()...))

	return mlp, nil
}

// Features returns the number of state features the MLP takes as input
func (m *MLP) Features() int {
	return m.net.Features()
}

// Outputs returns the number of action values predicted
func (m *MLP) Outputs() int {
	return m.net.Outputs()
}

// Output returns the output type of the MLP
func (m *MLP) Output() OutputType {
	return m.output
}

// Predict returns the predicted action values in state
func (m *MLP) Predict(state mat.Vector) ([]float64, error) {
	if state.Len() != m.Features() {
		return nil, fmt.Errorf("predict: %w\n\twant(%v)\n\thave(%v)",
			agent.ErrShapeMismatch, m.Features(), state.Len())
	}

	if err := m.net.SetInput(state); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	defer m.netVM.Reset()
	if err := m.netVM.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run network: %v", err)
	}

	values := m.net.Output().Data().([]float64)
	return append([]float64{}, values...), nil
}

// FitOne takes a single solver step toward predicting target in state
func (m *MLP) FitOne(state mat.Vector, target []float64) error {
	if state.Len() != m.Features() {
		return fmt.Errorf("fitOne: %w\n\twant(%v)\n\thave(%v)",
			agent.ErrShapeMismatch, m.Features(), state.Len())
	}
	if len(target) != m.Outputs() {
		return fmt.Errorf("fitOne: %w: invalid target length\n\twant(%v)"+
			"\n\thave(%v)", agent.ErrShapeMismatch, m.Outputs(), len(target))
	}

	if err := m.trainNet.SetInput(state); err != nil {
		return fmt.Errorf("fitOne: %v", err)
	}
	targetTensor := tensor.New(
		tensor.WithShape(1, m.Outputs()),
		tensor.WithBacking(append([]float64{}, target...)),
	)
	if err := G.Let(m.target, targetTensor); err != nil {
		return fmt.Errorf("fitOne: could not set target: %v", err)
	}

	defer m.trainNetVM.Reset()
	if err := m.trainNetVM.RunAll(); err != nil {
		return fmt.Errorf("fitOne: could not run training network: %v", err)
	}
	if err := m.solver.Step(m.trainNet.Model()); err != nil {
		return fmt.Errorf("fitOne: could not step solver: %v", err)
	}

	if err := m.net.Set(m.trainNet); err != nil {
		return fmt.Errorf("fitOne: could not update weights: %v", err)
	}
	return nil
}

// Loss returns the loss computed in the most recent call to FitOne
func (m *MLP) Loss() float64 {
	if m.lossVal == nil {
		return 0
	}
	return m.lossVal.Data().(float64)
}

// GobEncode implements the gob.GobEncoder interface. The network
// weights, output type and solver configuration are encoded. Solver
// state, such as Adam's moment estimates, is not.
func (m *MLP) GobEncode() ([]byte, error) {
	netBytes, err := m.net.(gob.GobEncoder).GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}

	solverBytes, err := json.Marshal(m.solver)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode solver: %v", err)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{m.output, solverBytes, netBytes} {
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("gobencode: %v", err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *MLP) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var output OutputType
	if err := dec.Decode(&output); err != nil {
		return fmt.Errorf("gobdecode: could not decode output type: %v", err)
	}

	var solverBytes []byte
	if err := dec.Decode(&solverBytes); err != nil {
		return fmt.Errorf("gobdecode: could not decode solver: %v", err)
	}
	s := &solver.Solver{}
	if err := json.Unmarshal(solverBytes, s); err != nil {
		return fmt.Errorf("gobdecode: could not decode solver: %v", err)
	}

	var netBytes []byte
	if err := dec.Decode(&netBytes); err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}
	net, err := network.Decode(netBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	mlp, err := newMLP(net, output, s)
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}
	*m = *mlp
	return nil
}
