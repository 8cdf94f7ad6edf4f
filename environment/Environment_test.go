package environment

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

// fixedPort is a Port with configurable spaces used to test the
// backend registry
type fixedPort struct {
	obs    ObservationSpace
	action ActionSpace
	closed int
}

func (f *fixedPort) Reset(context.Context) (ts.TimeStep, error) {
	return ts.New(ts.First, 0, mat.NewVecDense(f.obs.Shape, nil), 0), nil
}

func (f *fixedPort) Step(context.Context, int) (ts.TimeStep, error) {
	return ts.New(ts.Last, 0, mat.NewVecDense(f.obs.Shape, nil), 1), nil
}

func (f *fixedPort) ObservationSpace() ObservationSpace { return f.obs }
func (f *fixedPort) ActionSpace() ActionSpace           { return f.action }
func (f *fixedPort) Close() error                       { f.closed++; return nil }

func TestCreate(t *testing.T) {
	valid := &fixedPort{obs: NewBox(3, 0, 1, Float32), action: NewDiscrete(2)}
	invalid := &fixedPort{obs: NewBox(3, 0, 1, Float32), action: NewDiscrete(0)}

	Register("test-valid", func(Config) (Port, error) { return valid, nil })
	Register("test-invalid", func(Config) (Port, error) { return invalid, nil })
	Register("test-failing", func(Config) (Port, error) {
		return nil, errors.New("boom")
	})

	conf := DefaultConfig()

	conf.Backend = "test-valid"
	port, err := conf.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if port != valid {
		t.Errorf("create: did not return registered port")
	}

	conf.Backend = "test-invalid"
	if _, err := conf.Create(); err == nil {
		t.Errorf("create: expected error for empty action space")
	}
	if invalid.closed != 1 {
		t.Errorf("create: invalid port should be closed once\n\twant(1)"+
			"\n\thave(%v)", invalid.closed)
	}

	conf.Backend = "test-failing"
	if _, err := conf.Create(); err == nil {
		t.Errorf("create: expected factory error")
	}

	conf.Backend = "no-such-backend"
	if _, err := conf.Create(); err == nil {
		t.Errorf("create: expected error for unknown backend")
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("test-dup", func(Config) (Port, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Errorf("register: expected panic on duplicate backend")
		}
	}()
	Register("test-dup", func(Config) (Port, error) { return nil, nil })
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Config)
		valid bool
	}{
		{"default", func(*Config) {}, true},
		{"no backend", func(c *Config) { c.Backend = "" }, false},
		{"zero step time", func(c *Config) { c.StepTime = 0 }, false},
		{"negative sim time", func(c *Config) { c.SimTime = -1 }, false},
		{"bad port", func(c *Config) { c.Port = 70000 }, false},
	}

	for _, test := range tests {
		c := DefaultConfig()
		test.apply(&c)
		err := c.Validate()
		if (err == nil) != test.valid {
			t.Errorf("%v: valid\n\twant(%v)\n\thave(%v): %v", test.name,
				test.valid, err == nil, err)
		}
	}
}

func TestEpisodeSteps(t *testing.T) {
	c := DefaultConfig()
	if steps := c.EpisodeSteps(); steps != 1000 {
		t.Errorf("episode steps\n\twant(1000)\n\thave(%v)", steps)
	}

	c.SimTime = 0
	if steps := c.EpisodeSteps(); steps != 0 {
		t.Errorf("episode steps\n\twant(0)\n\thave(%v)", steps)
	}
}

func TestConforms(t *testing.T) {
	space := NewBox(3, 0, 1, Float32)

	if err := space.Conforms(mat.NewVecDense(3, nil)); err != nil {
		t.Errorf("conforms: %v", err)
	}

	err := space.Conforms(mat.NewVecDense(2, nil))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("conforms\n\twant(%v)\n\thave(%v)", ErrShapeMismatch, err)
	}
}

func TestEnders(t *testing.T) {
	limit := NewStepLimit(3)
	step := ts.New(ts.Mid, 0, mat.NewVecDense(1, nil), 2)
	if limit.End(&step) || step.Last() {
		t.Errorf("step limit: ended early at step %v", step.Number)
	}
	step.Number = 3
	if !limit.End(&step) || !step.Last() {
		t.Errorf("step limit: did not end at step %v", step.Number)
	}

	ender := NewFunctionEnder(func(v mat.Vector) bool {
		return v.AtVec(0) > 0.9
	})
	step = ts.New(ts.Mid, 0, mat.NewVecDense(1, []float64{0.95}), 1)
	if !ender.End(&step) || !step.Last() {
		t.Errorf("function ender: did not end episode")
	}
}

func TestActionSpaceContains(t *testing.T) {
	space := NewDiscrete(3)
	for action, want := range map[int]bool{-1: false, 0: true, 2: true, 3: false} {
		if have := space.Contains(action); have != want {
			t.Errorf("contains(%v)\n\twant(%v)\n\thave(%v)", action, want, have)
		}
	}
}
