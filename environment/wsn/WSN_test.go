package wsn

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/samuelfneumann/wsnlearn/environment"
	"gonum.org/v1/gonum/mat"
)

func testConfig(seed uint64) environment.Config {
	c := environment.DefaultConfig()
	c.SimTime = 10 // 100 control intervals
	c.Seed = seed
	return c
}

// episode runs a full episode with a constant threshold and returns its
// return and length
func episode(t *testing.T, s *Sim, lqt int) (float64, int) {
	t.Helper()
	ctx := context.Background()

	step, err := s.Reset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ret float64
	for !step.Last() {
		if step, err = s.Step(ctx, lqt); err != nil {
			t.Fatal(err)
		}
		ret += step.Reward
	}
	return ret, step.Number
}

func TestReward(t *testing.T) {
	tests := []struct {
		obs    []float64
		reward float64
	}{
		{[]float64{0.95, 0.95, 0.95}, -240},
		{[]float64{0.1, 0.3, 0.6}, 0},
		{[]float64{0.0, 0.2, 0.21}, 70},
		{[]float64{0.5, 0.9, 1.0}, -110},
	}

	for _, test := range tests {
		obs := mat.NewVecDense(Features, test.obs)
		if have := Reward(obs); have != test.reward {
			t.Errorf("reward(%v)\n\twant(%v)\n\thave(%v)", test.obs,
				test.reward, have)
		}
	}
}

func TestGameOver(t *testing.T) {
	if !GameOver(mat.NewVecDense(3, []float64{0.91, 0.95, 1})) {
		t.Errorf("gameOver: collapsed network not detected")
	}
	if GameOver(mat.NewVecDense(3, []float64{0.91, 0.9, 1})) {
		t.Errorf("gameOver: feature at 0.9 should not end the episode")
	}
}

func TestEpisode(t *testing.T) {
	s, err := New(testConfig(7))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	step, err := s.Reset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() || s.ObservationSpace().Conforms(step.Observation) != nil {
		t.Fatalf("reset: unexpected first step %v", step)
	}

	for i := 1; !step.Last(); i++ {
		step, err = s.Step(ctx, 11)
		if err != nil {
			t.Fatal(err)
		}
		if step.Number != i {
			t.Fatalf("step: wrong step number\n\twant(%v)\n\thave(%v)", i,
				step.Number)
		}
		for j := 0; j < Features; j++ {
			if v := step.Observation.AtVec(j); v < 0 || v > 1 {
				t.Fatalf("step: feature %v out of range: %v", j, v)
			}
		}
		if step.Info[InfoLQT] != strconv.Itoa(11) {
			t.Errorf("step: info\n\twant(%v)\n\thave(%v)", 11,
				step.Info[InfoLQT])
		}
		if step.Reward != Reward(step.Observation) {
			t.Errorf("step: reward does not match observation")
		}
	}

	if step.Number > 100 {
		t.Errorf("step: episode exceeded simulation time\n\twant(<=100)"+
			"\n\thave(%v)", step.Number)
	}
	if step.Number < 100 && !GameOver(step.Observation) {
		t.Errorf("step: episode ended early without game over")
	}
}

func TestThresholdMatters(t *testing.T) {
	good, err := New(testConfig(3))
	if err != nil {
		t.Fatal(err)
	}
	bad, err := New(testConfig(3))
	if err != nil {
		t.Fatal(err)
	}

	goodReturn, _ := episode(t, good, 12)
	badReturn, _ := episode(t, bad, 19)
	if goodReturn <= badReturn {
		t.Errorf("episode: threshold near optimum should earn more\n\t"+
			"want(>%v)\n\thave(%v)", badReturn, goodReturn)
	}
}

func TestDeterministic(t *testing.T) {
	a, _ := New(testConfig(11))
	b, _ := New(testConfig(11))

	retA, lenA := episode(t, a, 4)
	retB, lenB := episode(t, b, 4)
	if retA != retB || lenA != lenB {
		t.Errorf("episode: same seed gave different episodes\n\t"+
			"want(%v, %v)\n\thave(%v, %v)", retA, lenA, retB, lenB)
	}
}

func TestErrors(t *testing.T) {
	c := testConfig(1)
	c.SimArgs = map[string]string{ArgLoad: "heavy"}
	if _, err := New(c); err == nil {
		t.Errorf("new: expected error for unparsable load")
	}
	c.SimArgs = map[string]string{ArgOptimum: "1.5"}
	if _, err := New(c); err == nil {
		t.Errorf("new: expected error for optimum > 1")
	}

	s, _ := New(testConfig(1))
	ctx := context.Background()
	if _, err := s.Step(ctx, 0); err == nil {
		t.Errorf("step: expected error before reset")
	}
	s.Reset(ctx)
	if _, err := s.Step(ctx, Thresholds); !errors.Is(err,
		environment.ErrInvalidAction) {
		t.Errorf("step\n\twant(%v)\n\thave(%v)", environment.ErrInvalidAction,
			err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); !errors.Is(err, environment.ErrClosed) {
		t.Errorf("close\n\twant(%v)\n\thave(%v)", environment.ErrClosed, err)
	}
	if _, err := s.Reset(ctx); !errors.Is(err, environment.ErrCommunication) {
		t.Errorf("reset\n\twant(%v)\n\thave(%v)", environment.ErrCommunication,
			err)
	}
}

func TestRegistered(t *testing.T) {
	port, err := testConfig(1).Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer port.Close()

	if _, ok := port.(*Sim); !ok {
		t.Errorf("create: wrong port type %T", port)
	}
	if port.ActionSpace().N != Thresholds {
		t.Errorf("create: action space\n\twant(%v)\n\thave(%v)", Thresholds,
			port.ActionSpace().N)
	}
}
