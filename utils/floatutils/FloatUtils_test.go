package floatutils

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestMaxSlice(t *testing.T) {
	tests := []struct {
		in      []float64
		max     float64
		indices []int
	}{
		{[]float64{2, 5, 1}, 5, []int{1}},
		{[]float64{3, 3, 1}, 3, []int{0, 1}},
		{[]float64{-1}, -1, []int{0}},
		{[]float64{0, 4, 4, 4}, 4, []int{1, 2, 3}},
	}

	for _, test := range tests {
		max, indices := MaxSlice(test.in)
		if max != test.max || !reflect.DeepEqual(indices, test.indices) {
			t.Errorf("maxSlice(%v)\n\twant(%v, %v)\n\thave(%v, %v)", test.in,
				test.max, test.indices, max, indices)
		}
	}
}

func TestClip(t *testing.T) {
	interval := r1.Interval{Min: 0, Max: 1}
	for in, want := range map[float64]float64{-0.5: 0, 0.3: 0.3, 1.7: 1} {
		if have := ClipInterval(in, interval); have != want {
			t.Errorf("clip(%v)\n\twant(%v)\n\thave(%v)", in, want, have)
		}
	}
}
