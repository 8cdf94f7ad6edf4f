package policy

import (
	"errors"
	"testing"

	"github.com/samuelfneumann/wsnlearn/agent"
	"gonum.org/v1/gonum/mat"
)

// fixed is a ValueApproximator which always predicts the same values
type fixed []float64

func (f fixed) Predict(state mat.Vector) ([]float64, error) {
	if state.Len() != 1 {
		return nil, agent.ErrShapeMismatch
	}
	return append([]float64{}, f...), nil
}
func (f fixed) FitOne(mat.Vector, []float64) error { return nil }
func (f fixed) Features() int                     { return 1 }
func (f fixed) Outputs() int                      { return len(f) }

func TestGreedy(t *testing.T) {
	tests := []struct {
		values []float64
		want   int
	}{
		{[]float64{2, 5, 1}, 1},
		{[]float64{3, 3, 1}, 0},
		{[]float64{-4, -2, -2}, 1},
	}

	state := mat.NewVecDense(1, []float64{0.5})
	for _, test := range tests {
		p := NewEGreedy(fixed(test.values), 1)
		have, err := p.Select(state, 0.0)
		if err != nil {
			t.Fatal(err)
		}
		if have != test.want {
			t.Errorf("select(%v)\n\twant(%v)\n\thave(%v)", test.values,
				test.want, have)
		}
	}
}

func TestActionsInRange(t *testing.T) {
	values := fixed{0, 1, 2, 3, 4}
	p := NewEGreedy(values, 42)
	state := mat.NewVecDense(1, nil)

	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		action, err := p.Select(state, 1.0)
		if err != nil {
			t.Fatal(err)
		}
		if action < 0 || action >= len(values) {
			t.Fatalf("select: action out of range\n\twant([0, %v))"+
				"\n\thave(%v)", len(values), action)
		}
		seen[action] = true
	}
	if len(seen) != len(values) {
		t.Errorf("select: not all actions explored\n\twant(%v)\n\thave(%v)",
			len(values), len(seen))
	}
}

func TestSelectErrors(t *testing.T) {
	p := NewEGreedy(fixed{1, 2}, 0)

	if _, err := p.Select(mat.NewVecDense(1, nil), 1.5); err == nil {
		t.Errorf("select: expected error for epsilon > 1")
	}

	_, err := p.Select(mat.NewVecDense(3, nil), 0)
	if !errors.Is(err, agent.ErrShapeMismatch) {
		t.Errorf("select\n\twant(%v)\n\thave(%v)", agent.ErrShapeMismatch,
			err)
	}
}

func TestDecay(t *testing.T) {
	d, err := NewDecay(0.01, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	eps := 1.0
	for i := 0; i < 200; i++ {
		next := d.Next(eps)
		if next < d.Min || next > eps {
			t.Fatalf("next(%v)\n\twant(%v ≤ ε ≤ %v)\n\thave(%v)", eps, d.Min,
				eps, next)
		}
		if eps > d.Min && next == eps {
			t.Fatalf("next(%v): epsilon did not decrease", eps)
		}
		eps = next
	}
	if eps != d.Min {
		t.Errorf("next: epsilon not floored\n\twant(%v)\n\thave(%v)", d.Min,
			eps)
	}

	if _, err := NewDecay(0.1, 1.5); err == nil {
		t.Errorf("newDecay: expected error for rate > 1")
	}
}
