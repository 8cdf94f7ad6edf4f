package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// validate checks the hyperparameters shared by all solvers
func validate(stepSize float64, batch int) error {
	if stepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive\n\t"+
			"want(>0)\n\thave(%v)", stepSize)
	}
	if batch < 1 {
		return fmt.Errorf("validate: batch size must be positive\n\t"+
			"want(>0)\n\thave(%v)", batch)
	}
	return nil
}

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	Step    float64 `json:"StepSize"`
	Epsilon float64 // Smoothing factor
	Beta1   float64
	Beta2   float64
	Batch   int
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64,
	batchSize int) (*Solver, error) {
	adam := AdamConfig{
		Step:    stepSize,
		Epsilon: epsilon,
		Beta1:   beta1,
		Beta2:   beta2,
		Batch:   batchSize,
	}

	return newSolver(Adam, adam)
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	return G.NewAdamSolver(
		G.WithLearnRate(a.Step),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	)
}

func (a AdamConfig) ValidType(t Type) bool { return t == Adam }
func (a AdamConfig) StepSize() float64     { return a.Step }

func (a AdamConfig) Validate() error {
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		return fmt.Errorf("validate: betas must be in [0, 1)\n\t"+
			"have(%v, %v)", a.Beta1, a.Beta2)
	}
	return validate(a.Step, a.Batch)
}

// RMSPropConfig implements a specific configuration of the RMSProp
// solver
type RMSPropConfig struct {
	Step    float64 `json:"StepSize"`
	Epsilon float64
	Rho     float64
	Batch   int
	Clip    float64 // <= 0 if no clipping
}

// NewDefaultRMSProp returns a new RMSProp Solver with default
// hyperparameters
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 1e-8, 0.999, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	rmsprop := RMSPropConfig{
		Step:    stepSize,
		Epsilon: epsilon,
		Rho:     rho,
		Batch:   batchSize,
		Clip:    clip,
	}

	return newSolver(RMSProp, rmsprop)
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(r.Step),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
		G.WithBatchSize(float64(r.Batch)),
	}
	if r.Clip > 0 {
		opts = append(opts, G.WithClip(r.Clip))
	}
	return G.NewRMSPropSolver(opts...)
}

func (r RMSPropConfig) ValidType(t Type) bool { return t == RMSProp }
func (r RMSPropConfig) StepSize() float64     { return r.Step }
func (r RMSPropConfig) Validate() error       { return validate(r.Step, r.Batch) }

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	Step  float64 `json:"StepSize"`
	Batch int
	Clip  float64 // <= 0 if no clipping
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	vanilla := VanillaConfig{
		Step:  stepSize,
		Batch: batchSize,
		Clip:  clip,
	}

	return newSolver(Vanilla, vanilla)
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(v.Step),
		G.WithBatchSize(float64(v.Batch)),
	}
	if v.Clip > 0 {
		opts = append(opts, G.WithClip(v.Clip))
	}
	return G.NewVanillaSolver(opts...)
}

func (v VanillaConfig) ValidType(t Type) bool { return t == Vanilla }
func (v VanillaConfig) StepSize() float64     { return v.Step }
func (v VanillaConfig) Validate() error       { return validate(v.Step, v.Batch) }
