package policy

import (
	"fmt"
	"math"
)

// Decay implements multiplicative exploration rate decay floored at
// Min
type Decay struct {
	Min  float64
	Rate float64
}

// NewDecay returns a new Decay
func NewDecay(min, rate float64) (Decay, error) {
	d := Decay{Min: min, Rate: rate}
	return d, d.Validate()
}

// Validate returns an error if the decay could leave [Min, 1]
func (d Decay) Validate() error {
	if d.Min < 0 || d.Min > 1 {
		return fmt.Errorf("validate: minimum epsilon out of range\n\t"+
			"want(0 ≤ min ≤ 1)\n\thave(%v)", d.Min)
	}
	if d.Rate <= 0 || d.Rate > 1 {
		return fmt.Errorf("validate: decay rate out of range\n\t"+
			"want(0 < rate ≤ 1)\n\thave(%v)", d.Rate)
	}
	return nil
}

// Next returns the exploration rate following epsilon
func (d Decay) Next(epsilon float64) float64 {
	return math.Max(epsilon*d.Rate, d.Min)
}
