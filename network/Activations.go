package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Activation is an element-wise (or, for Softmax, row-wise) function
// applied to the output of a layer. Activations are identified by
// name when encoded, so that network architectures can be stored in
// JSON configurations and gob checkpoints.
type Activation struct {
	name string
	f    func(x *G.Node) (*G.Node, error)
}

var activations = map[string]func(*G.Node) (*G.Node, error){
	"identity": func(x *G.Node) (*G.Node, error) { return x, nil },
	"relu":     G.Rectify,
	"tanh":     G.Tanh,
	"sigmoid":  G.Sigmoid,
	"softmax":  func(x *G.Node) (*G.Node, error) { return G.SoftMax(x) },
}

func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

func (a *Activation) String() string {
	return a.name
}

// ActivationFromName returns the Activation with the argument name
func ActivationFromName(name string) (*Activation, error) {
	f, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("illegal activation %q", name)
	}
	return &Activation{name: name, f: f}, nil
}

func mustActivation(name string) *Activation {
	a, err := ActivationFromName(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Identity returns an identity *Activation
func Identity() *Activation { return mustActivation("identity") }

// ReLU returns a ReLU *Activation
func ReLU() *Activation { return mustActivation("relu") }

// TanH returns a tanh *Activation
func TanH() *Activation { return mustActivation("tanh") }

// Sigmoid returns a logistic sigmoid *Activation
func Sigmoid() *Activation { return mustActivation("sigmoid") }

// Softmax returns a *Activation which normalizes its input into a
// categorical distribution
func Softmax() *Activation { return mustActivation("softmax") }

// GobEncode implements the gob.GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.name), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	return a.UnmarshalText(encoded)
}

// MarshalText implements the encoding.TextMarshaler interface
func (a *Activation) MarshalText() ([]byte, error) {
	return []byte(a.name), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (a *Activation) UnmarshalText(text []byte) error {
	act, err := ActivationFromName(string(text))
	if err != nil {
		return fmt.Errorf("unmarshalText: %v", err)
	}
	*a = *act
	return nil
}
