// Package wsn implements a surrogate of the congestion control scenario
// of a wireless sensor network. The surrogate is a stochastic model of
// a multi-hop network in which the agent sets the link quality
// threshold (LQT) used by every node's MAC layer. It follows the same
// reset/step contract as the ns-3 simulation so that agents can be
// trained and tested without a running simulator.
//
// Observations are the network means of the normalized queue length,
// packet arrival rate and end-to-end delay, each in [0, 1]. A strict
// threshold leaves few usable links so queues and delay grow, while a
// lax threshold admits lossy links whose retransmissions increase the
// arrival rate. The best threshold lies in between and depends on the
// offered load.
package wsn

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/samuelfneumann/wsnlearn/environment"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
	"github.com/samuelfneumann/wsnlearn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// Observation indices
	QueueLength = iota
	ArrivalRate
	Delay

	// Features is the number of observation features
	Features = 3

	// Thresholds is the number of selectable link quality thresholds
	Thresholds = 20

	// GameOverLevel is the level above which all three features must
	// lie for the network to be considered collapsed
	GameOverLevel = 0.9

	// InfoLQT is the Info key holding the threshold in use
	InfoLQT = "lqt"
)

// Scenario parameters which can be set through SimArgs
const (
	ArgLoad    = "load"    // Offered load in [0, 1]
	ArgOptimum = "optimum" // Best normalized threshold in [0, 1]
	ArgNoise   = "noise"   // Standard deviation of measurement noise
)

// Default scenario parameters
const (
	DefaultLoad    = 0.5
	DefaultOptimum = 0.6
	DefaultNoise   = 0.02
)

func init() {
	environment.Register(environment.WSN, func(c environment.Config) (
		environment.Port, error) {
		return New(c)
	})
}

// Reward returns the reward of an observation. Each feature contributes
// -80 above 0.9, -40 above 0.5, +10 above 0.2 and +30 otherwise.
func Reward(obs mat.Vector) float64 {
	var reward float64
	for i := 0; i < obs.Len(); i++ {
		switch v := obs.AtVec(i); {
		case v > 0.9:
			reward -= 80
		case v > 0.5:
			reward -= 40
		case v > 0.2:
			reward += 10
		default:
			reward += 30
		}
	}
	return reward
}

// GameOver returns whether every feature of obs exceeds GameOverLevel
func GameOver(obs mat.Vector) bool {
	for i := 0; i < obs.Len(); i++ {
		if obs.AtVec(i) <= GameOverLevel {
			return false
		}
	}
	return true
}

// Sim is the surrogate network simulation
type Sim struct {
	load    float64
	optimum float64

	starter environment.Starter
	enders  []environment.Ender
	noise   distuv.Normal

	state  *mat.VecDense
	number int
	lqt    int
	closed bool
}

// New returns a new surrogate simulation configured by c. Episodes last
// c.EpisodeSteps() control intervals unless the network collapses
// first.
func New(c environment.Config) (*Sim, error) {
	load, err := floatArg(c.SimArgs, ArgLoad, DefaultLoad)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	optimum, err := floatArg(c.SimArgs, ArgOptimum, DefaultOptimum)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	noise, err := floatArg(c.SimArgs, ArgNoise, DefaultNoise)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if load < 0 || load > 1 || optimum < 0 || optimum > 1 || noise < 0 {
		return nil, fmt.Errorf("new: invalid scenario\n\twant(load, optimum"+
			" in [0, 1], noise >= 0)\n\thave(%v, %v, %v)", load, optimum, noise)
	}

	bounds := []r1.Interval{{Min: 0, Max: 0.3}, {Min: 0, Max: 0.3},
		{Min: 0, Max: 0.3}}
	starter := environment.NewUniformStarter(bounds, c.Seed)

	enders := []environment.Ender{
		environment.NewFunctionEnder(GameOver),
		environment.NewStepLimit(c.EpisodeSteps()),
	}

	return &Sim{
		load:    load,
		optimum: optimum,
		starter: starter,
		enders:  enders,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: noise,
			Src:   rand.NewSource(c.Seed + 1),
		},
		lqt: Thresholds / 2,
	}, nil
}

// ObservationSpace implements the environment.Port interface
func (s *Sim) ObservationSpace() environment.ObservationSpace {
	return environment.NewBox(Features, 0, 1, environment.Float32)
}

// ActionSpace implements the environment.Port interface
func (s *Sim) ActionSpace() environment.ActionSpace {
	return environment.NewDiscrete(Thresholds)
}

// Reset starts a new episode from a lightly loaded network
func (s *Sim) Reset(ctx context.Context) (ts.TimeStep, error) {
	if s.closed {
		return ts.TimeStep{}, environment.CommunicationError("reset",
			environment.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return ts.TimeStep{}, err
	}

	s.state = s.starter.Start()
	s.number = 0

	step := ts.New(ts.First, 0, mat.VecDenseCopyOf(s.state), s.number)
	step.Info = s.info()
	return step, nil
}

// Step applies the threshold action for one control interval
func (s *Sim) Step(ctx context.Context, action int) (ts.TimeStep, error) {
	if s.closed {
		return ts.TimeStep{}, environment.CommunicationError("step",
			environment.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return ts.TimeStep{}, err
	}
	if s.state == nil {
		return ts.TimeStep{}, fmt.Errorf("step: environment must be reset " +
			"before stepping")
	}
	if !s.ActionSpace().Contains(action) {
		return ts.TimeStep{}, fmt.Errorf("step: %w\n\twant([0, %v))\n\t"+
			"have(%v)", environment.ErrInvalidAction, Thresholds, action)
	}

	s.lqt = action
	s.state = s.next(s.state, action)
	s.number++

	step := ts.New(ts.Mid, Reward(s.state), mat.VecDenseCopyOf(s.state),
		s.number)
	step.Info = s.info()
	for _, ender := range s.enders {
		if ender.End(&step) {
			break
		}
	}
	return step, nil
}

// next returns the network state after one control interval with
// threshold lqt
func (s *Sim) next(state mat.Vector, lqt int) *mat.VecDense {
	strictness := float64(lqt) / float64(Thresholds-1)
	mismatch := math.Abs(strictness - s.optimum)

	// Lossy links admitted by lax thresholds cause retransmissions
	retransmissions := 0.8 * math.Max(s.optimum-strictness, 0)
	arrival := 0.7*state.AtVec(ArrivalRate) +
		0.3*(s.load+retransmissions) + s.noise.Rand()

	// Strict thresholds leave fewer parents to forward to
	service := (1 - 1.5*mismatch) * (1 - 0.4*s.load)
	queue := state.AtVec(QueueLength) + 0.5*(arrival-service) +
		s.noise.Rand()

	delay := 0.5*state.AtVec(Delay) + 0.5*(queue+0.5*mismatch) +
		s.noise.Rand()

	unit := r1.Interval{Min: 0, Max: 1}
	return mat.NewVecDense(Features, []float64{
		floatutils.ClipInterval(queue, unit),
		floatutils.ClipInterval(arrival, unit),
		floatutils.ClipInterval(delay, unit),
	})
}

func (s *Sim) info() map[string]string {
	return map[string]string{InfoLQT: strconv.Itoa(s.lqt)}
}

// Close implements the environment.Port interface
func (s *Sim) Close() error {
	if s.closed {
		return environment.ErrClosed
	}
	s.closed = true
	return nil
}

// floatArg parses the simulator argument key, returning def if absent
func floatArg(args map[string]string, key string, def float64) (float64,
	error) {
	value, ok := args[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid simulator argument %v=%q: %v", key,
			value, err)
	}
	return f, nil
}
