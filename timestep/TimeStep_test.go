package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewTransition(t *testing.T) {
	state := mat.NewVecDense(2, []float64{0.1, 0.2})
	next := mat.NewVecDense(2, []float64{0.3, 0.4})

	tests := []struct {
		name     string
		stepType StepType
		done     bool
	}{
		{"mid", Mid, false},
		{"last", Last, true},
	}

	for _, test := range tests {
		first := New(First, 0, state, 0)
		second := New(test.stepType, 1.5, next, 1)

		tr := NewTransition(first, 2, second)
		if tr.Done != test.done {
			t.Errorf("%v: done\n\twant(%v)\n\thave(%v)", test.name, test.done,
				tr.Done)
		}
		if tr.Reward != 1.5 {
			t.Errorf("%v: reward\n\twant(1.5)\n\thave(%v)", test.name,
				tr.Reward)
		}
		if tr.Action != 2 {
			t.Errorf("%v: action\n\twant(2)\n\thave(%v)", test.name, tr.Action)
		}
		if tr.State != state || tr.NextState != next {
			t.Errorf("%v: transition does not reference step observations",
				test.name)
		}
	}
}

func TestStepType(t *testing.T) {
	step := New(Last, 0, nil, 3)
	if !step.Last() || step.First() || step.Mid() {
		t.Errorf("step type: want Last, have %v", step.StepType)
	}
	if step.StepType.String() != "Last" {
		t.Errorf("string\n\twant(Last)\n\thave(%v)", step.StepType.String())
	}
}
