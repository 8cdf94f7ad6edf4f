package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// layer is a fully connected layer operating on a single row vector
type layer struct {
	weights *G.Node // in × out
	bias    *G.Node // 1 × out, nil if the layer has no bias unit
	act     *Activation
}

func newLayer(g *G.ExprGraph, index, in, out int, bias bool,
	act *Activation, init G.InitWFn) *layer {
	l := &layer{
		weights: G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
			G.WithName(fmt.Sprintf("L%dW", index)), G.WithInit(init)),
		act: act,
	}
	if bias {
		l.bias = G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
			G.WithName(fmt.Sprintf("L%dB", index)), G.WithInit(G.Zeroes()))
	}
	return l
}

// fwd adds the forward pass of the layer on x to the graph
func (l *layer) fwd(x *G.Node) (*G.Node, error) {
	out, err := G.Mul(x, l.weights)
	if err != nil {
		return nil, err
	}
	if l.bias != nil {
		if out, err = G.Add(out, l.bias); err != nil {
			return nil, err
		}
	}
	if l.act == nil {
		return out, nil
	}
	return l.act.fwd(out)
}

// cloneTo copies the layer, including its current weights, to g
func (l *layer) cloneTo(g *G.ExprGraph) *layer {
	clone := &layer{weights: l.weights.CloneTo(g), act: l.act}
	if l.bias != nil {
		clone.bias = l.bias.CloneTo(g)
	}
	return clone
}

// learnables returns the weights followed by the bias, if any
func (l *layer) learnables() G.Nodes {
	if l.bias == nil {
		return G.Nodes{l.weights}
	}
	return G.Nodes{l.weights, l.bias}
}
