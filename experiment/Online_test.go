package experiment

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samuelfneumann/wsnlearn/agent"
	"github.com/samuelfneumann/wsnlearn/agent/approx"
	"github.com/samuelfneumann/wsnlearn/agent/policy"
	"github.com/samuelfneumann/wsnlearn/environment"
	"github.com/samuelfneumann/wsnlearn/experiment/checkpointer"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
	"gonum.org/v1/gonum/mat"
)

// stubPort is a Port which returns a reward of 1 on every step
type stubPort struct {
	features int
	actions  int
	doneAt   int // Step on which episodes end, 0 for never

	obsLen int            // Length of returned observations
	failAt int            // Step on which Step fails, 0 for never
	onStep func(step int) // Called before each step returns
	taken  []int          // Actions taken

	step   int
	resets int
	closed int
}

func newStubPort(doneAt int) *stubPort {
	return &stubPort{features: 2, actions: 3, obsLen: 2, doneAt: doneAt}
}

func (s *stubPort) obs() *mat.VecDense {
	return mat.NewVecDense(s.obsLen, nil)
}

func (s *stubPort) Reset(context.Context) (ts.TimeStep, error) {
	s.step = 0
	s.resets++
	return ts.New(ts.First, 0, s.obs(), 0), nil
}

func (s *stubPort) Step(_ context.Context, action int) (ts.TimeStep, error) {
	s.step++
	s.taken = append(s.taken, action)
	if s.onStep != nil {
		s.onStep(s.step)
	}
	if s.failAt != 0 && s.step == s.failAt {
		return ts.TimeStep{}, errors.New("connection reset by peer")
	}

	stepType := ts.Mid
	if s.doneAt != 0 && s.step == s.doneAt {
		stepType = ts.Last
	}
	return ts.New(stepType, 1.0, s.obs(), s.step), nil
}

func (s *stubPort) ObservationSpace() environment.ObservationSpace {
	return environment.NewBox(s.features, 0, 1, environment.Float32)
}

func (s *stubPort) ActionSpace() environment.ActionSpace {
	return environment.NewDiscrete(s.actions)
}

func (s *stubPort) Close() error {
	s.closed++
	return nil
}

// countingAgent is a Policy and Learner which records its calls
type countingAgent struct {
	epsilons    []float64
	transitions []ts.Transition
}

func (c *countingAgent) Select(_ mat.Vector, epsilon float64) (int, error) {
	c.epsilons = append(c.epsilons, epsilon)
	return 1, nil
}

func (c *countingAgent) Update(t ts.Transition) (float64, error) {
	c.transitions = append(c.transitions, t)
	return 0, nil
}

func testSettings(episodes, maxSteps int) Settings {
	return Settings{
		TotalEpisodes: episodes,
		MaxEnvSteps:   maxSteps,
		Epsilon:       1.0,
		Decay:         policy.Decay{Min: 0.01, Rate: 0.5},
	}
}

func newTestExp(t *testing.T, port *stubPort, s Settings) (*Online,
	*countingAgent) {
	t.Helper()
	a := &countingAgent{}
	exp, err := NewOnline(port, a, a, s, nil, nil)
	if err != nil {
		t.Fatalf("newOnline: %v", err)
	}
	return exp, a
}

func TestRunDoneOnThirdStep(t *testing.T) {
	// Episodes end on the third step, whether or not the step limit is
	// reached on that same step
	for _, maxSteps := range []int{100, 3} {
		port := newStubPort(3)
		exp, a := newTestExp(t, port, testSettings(2, maxSteps))

		history, err := exp.Run(context.Background())
		if err != nil {
			t.Fatalf("run (max steps %v): %v", maxSteps, err)
		}

		if len(history) != 2 {
			t.Fatalf("run (max steps %v): wrong number of episodes\n\t"+
				"want(2)\n\thave(%v)", maxSteps, len(history))
		}
		for i, m := range history {
			if m.Episode != i || m.Steps != 3 || m.Return != 3.0 {
				t.Errorf("run (max steps %v): episode %v\n\t"+
					"want(steps=3, return=3)\n\thave(%v)", maxSteps, i, m)
			}
		}

		// Only non-terminal transitions are learned from
		if len(a.transitions) != 4 {
			t.Errorf("run (max steps %v): wrong number of updates\n\t"+
				"want(4)\n\thave(%v)", maxSteps, len(a.transitions))
		}
		for _, tr := range a.transitions {
			if tr.Done || tr.Action != 1 || tr.Reward != 1 {
				t.Errorf("run (max steps %v): unexpected transition %+v",
					maxSteps, tr)
			}
		}
		if port.resets != 2 || port.closed != 1 {
			t.Errorf("run (max steps %v): resets, closes\n\twant(2, 1)\n\t"+
				"have(%v, %v)", maxSteps, port.resets, port.closed)
		}
	}
}

// flakySink fails on its first Record
type flakySink struct {
	records int
}

func (f *flakySink) Record(context.Context, tracker.EpisodeMetrics) error {
	f.records++
	if f.records == 1 {
		return errors.New("redis: i/o timeout")
	}
	return nil
}

func (f *flakySink) Close() error { return nil }

func TestRunSinkError(t *testing.T) {
	port := newStubPort(3)
	sink := &flakySink{}
	var logs bytes.Buffer
	exp, err := NewOnline(port, &countingAgent{}, &countingAgent{},
		testSettings(5, 100), tracker.NewRecorder(sink),
		log.New(&logs, "", 0))
	if err != nil {
		t.Fatal(err)
	}

	history, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: sink error ended the experiment: %v", err)
	}
	if len(history) != 5 || sink.records != 5 || port.resets != 5 {
		t.Errorf("run: episodes, records, resets\n\twant(5, 5, 5)\n\t"+
			"have(%v, %v, %v)", len(history), sink.records, port.resets)
	}
	if port.closed != 1 {
		t.Errorf("run: port closed\n\twant(1)\n\thave(%v)", port.closed)
	}
	if !strings.Contains(logs.String(), "i/o timeout") {
		t.Errorf("run: sink error not logged\n\thave(%q)", logs.String())
	}
}

func TestRunLearnTerminal(t *testing.T) {
	s := testSettings(1, 100)
	s.LearnTerminal = true
	exp, a := newTestExp(t, newStubPort(3), s)

	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(a.transitions) != 3 || !a.transitions[2].Done {
		t.Errorf("run: terminal transition not learned from\n\t"+
			"have(%v updates)", len(a.transitions))
	}
}

func TestRunNeverDone(t *testing.T) {
	exp, _ := newTestExp(t, newStubPort(0), testSettings(3, 7))

	history, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range history {
		if m.Steps != 7 || m.Return != 7 {
			t.Errorf("run: episode not truncated\n\twant(steps=7)\n\t"+
				"have(%v)", m)
		}
	}
}

func TestEpsilonDecay(t *testing.T) {
	exp, a := newTestExp(t, newStubPort(3), testSettings(3, 100))

	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Two decays per episode at rate 0.5, floored at 0.01
	want := []float64{1, 0.5, 0.25, 0.25, 0.125, 0.0625, 0.0625, 0.03125,
		0.015625}
	if len(a.epsilons) != len(want) {
		t.Fatalf("run: wrong number of selections\n\twant(%v)\n\thave(%v)",
			len(want), len(a.epsilons))
	}
	for i := range want {
		if a.epsilons[i] != want[i] {
			t.Errorf("run: epsilon %v\n\twant(%v)\n\thave(%v)", i, want[i],
				a.epsilons[i])
		}
	}
	if eps := exp.Epsilon(); eps != 0.015625 {
		t.Errorf("run: final epsilon\n\twant(0.015625)\n\thave(%v)", eps)
	}

	// Further decay is floored at the minimum
	if eps := exp.Settings().Decay.Next(exp.Epsilon()); eps != 0.01 {
		t.Errorf("next: epsilon not floored\n\twant(0.01)\n\thave(%v)", eps)
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := newStubPort(3)
	port.onStep = func(step int) {
		if port.resets == 2 && step == 2 {
			cancel()
		}
	}
	exp, _ := newTestExp(t, port, testSettings(5, 100))

	history, err := exp.Run(ctx)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("run\n\twant(%v)\n\thave(%v)", ErrInterrupted, err)
	}
	if len(history) != 1 {
		t.Errorf("run: partial history\n\twant(1 episode)\n\thave(%v)",
			len(history))
	}
	if port.closed != 1 {
		t.Errorf("run: port closed\n\twant(1)\n\thave(%v)", port.closed)
	}
}

func TestRunCommunicationError(t *testing.T) {
	port := newStubPort(0)
	port.failAt = 2
	exp, _ := newTestExp(t, port, testSettings(2, 10))

	history, err := exp.Run(context.Background())
	if !errors.Is(err, environment.ErrCommunication) {
		t.Fatalf("run\n\twant(%v)\n\thave(%v)", environment.ErrCommunication,
			err)
	}
	if len(history) != 0 {
		t.Errorf("run: unexpected history %v", history)
	}
	if port.closed != 1 {
		t.Errorf("run: port closed\n\twant(1)\n\thave(%v)", port.closed)
	}
}

func TestRunShapeMismatch(t *testing.T) {
	port := newStubPort(3)
	port.obsLen = 5
	exp, a := newTestExp(t, port, testSettings(1, 10))

	_, err := exp.Run(context.Background())
	if !errors.Is(err, agent.ErrShapeMismatch) {
		t.Fatalf("run\n\twant(%v)\n\thave(%v)", agent.ErrShapeMismatch, err)
	}
	if len(a.epsilons) != 0 || port.closed != 1 {
		t.Errorf("run: acted on mismatched state or port not closed")
	}
}

func TestEvalAfterRun(t *testing.T) {
	exp, a := newTestExp(t, newStubPort(2), testSettings(1, 10))
	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := exp.Eval(context.Background(), 1)
	if !errors.Is(err, environment.ErrClosed) {
		t.Errorf("eval\n\twant(%v)\n\thave(%v)", environment.ErrClosed, err)
	}
	if len(a.epsilons) != 2 {
		t.Errorf("eval: acted after close")
	}
}

func TestNewOnlineInvalid(t *testing.T) {
	s := testSettings(1, 0)
	if _, err := NewOnline(newStubPort(1), nil, nil, s, nil, nil); err == nil {
		t.Errorf("newOnline: expected error for zero max steps")
	}

	s = testSettings(1, 1)
	s.Epsilon = 0.001
	if _, err := NewOnline(newStubPort(1), nil, nil, s, nil, nil); err == nil {
		t.Errorf("newOnline: expected error for epsilon below minimum")
	}
}

func TestCreateExp(t *testing.T) {
	dir := t.TempDir()

	c := DefaultConfig()
	c.TotalEpisodes = 4
	c.EvalEpisodes = 2
	c.MaxEnvSteps = 5
	c.AgentConf.Type = approx.TypeLinear
	c.CheckpointInterval = 2
	c.OutputDir = dir

	port := newStubPort(0)
	exp, err := c.CreateExp(port, tracker.NewRecorder(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := exp.Approximator().(*approx.Linear); !ok {
		t.Fatalf("createExp: wrong approximator %T", exp.Approximator())
	}

	history, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || len(exp.EvalHistory()) != 2 {
		t.Errorf("run: wrong number of episodes\n\twant(4, 2)\n\t"+
			"have(%v, %v)", len(history), len(exp.EvalHistory()))
	}
	for _, action := range port.taken {
		if action < 0 || action >= port.actions {
			t.Fatalf("run: action out of range: %v", action)
		}
	}

	// Every step returns a reward of 1, so the learned values approach
	// the discounted return
	values, err := exp.Approximator().Predict(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		if v < 0 || math.IsNaN(v) {
			t.Errorf("run: unexpected learned value %v", v)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, CheckpointFile)); err != nil {
		t.Errorf("run: no checkpoint written: %v", err)
	}
	if port.closed != 1 {
		t.Errorf("run: port closed\n\twant(1)\n\thave(%v)", port.closed)
	}
}

func TestCreateExpKeepCheckpoints(t *testing.T) {
	dir := t.TempDir()

	c := DefaultConfig()
	c.TotalEpisodes = 4
	c.MaxEnvSteps = 3
	c.AgentConf.Type = approx.TypeLinear
	c.CheckpointInterval = 2
	c.KeepCheckpoints = true
	c.OutputDir = dir

	exp, err := c.CreateExp(newStubPort(0), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"approx-1.gob", "approx-2.gob"} {
		loaded := &approx.Linear{}
		if err := checkpointer.Load(loaded, filepath.Join(dir, name)); err != nil {
			t.Errorf("checkpoint: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, CheckpointFile)); err == nil {
		t.Errorf("checkpoint: unexpected fixed checkpoint file")
	}
}
