package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/samuelfneumann/wsnlearn/agent"
	"github.com/samuelfneumann/wsnlearn/agent/policy"
	"github.com/samuelfneumann/wsnlearn/environment"
	"github.com/samuelfneumann/wsnlearn/experiment/checkpointer"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

// ErrInterrupted is returned when an experiment is cancelled before
// all of its episodes have finished
var ErrInterrupted = errors.New("experiment interrupted")

// Settings holds the control loop parameters of an Online experiment
type Settings struct {
	TotalEpisodes int
	MaxEnvSteps   int
	EvalEpisodes  int
	Epsilon       float64
	Decay         policy.Decay
	LearnTerminal bool
	Verbose       bool
}

// Online is an experiment in which an agent learns online from each
// transition as it is generated. No transitions are stored.
//
// Online owns its Port and closes it exactly once, when Run returns or
// when Close is called, whichever happens first.
type Online struct {
	port    environment.Port
	policy  agent.Policy
	learner agent.Learner

	settings Settings
	epsilon  float64

	recorder      *tracker.Recorder
	evalHistory   []tracker.EpisodeMetrics
	checkpointers []checkpointer.Checkpointer
	logger        *log.Logger

	approximator agent.ValueApproximator
	closed       bool
}

// NewOnline creates and returns a new online experiment which selects
// actions in port with p and learns with l. Finished episodes are
// recorded with r, which may be nil. If logger is nil, nothing is
// logged.
func NewOnline(port environment.Port, p agent.Policy, l agent.Learner,
	s Settings, r *tracker.Recorder, logger *log.Logger) (*Online, error) {
	if s.TotalEpisodes < 0 || s.MaxEnvSteps < 1 {
		return nil, fmt.Errorf("newOnline: invalid episode limits\n\t"+
			"want(>=0, >0)\n\thave(%v, %v)", s.TotalEpisodes, s.MaxEnvSteps)
	}
	if err := s.Decay.Validate(); err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}
	if s.Epsilon < s.Decay.Min || s.Epsilon > 1 {
		return nil, fmt.Errorf("newOnline: initial epsilon out of range\n\t"+
			"want([%v, 1])\n\thave(%v)", s.Decay.Min, s.Epsilon)
	}

	if r == nil {
		r = tracker.NewRecorder()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Online{
		port:     port,
		policy:   p,
		learner:  l,
		settings: s,
		epsilon:  s.Epsilon,
		recorder: r,
		logger:   logger,
	}, nil
}

// Register registers a Checkpointer which is called after each
// training episode
func (o *Online) Register(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// Approximator returns the value approximator being trained, if the
// experiment was created from a Config
func (o *Online) Approximator() agent.ValueApproximator {
	return o.approximator
}

// Settings returns the control loop parameters of the experiment
func (o *Online) Settings() Settings {
	return o.settings
}

// Epsilon returns the current exploration rate
func (o *Online) Epsilon() float64 {
	return o.epsilon
}

// History returns the metrics of all finished training episodes
func (o *Online) History() []tracker.EpisodeMetrics {
	return o.recorder.History()
}

// EvalHistory returns the metrics of the evaluation episodes run at the
// end of Run
func (o *Online) EvalHistory() []tracker.EpisodeMetrics {
	return append([]tracker.EpisodeMetrics{}, o.evalHistory...)
}

// Run runs all training episodes, then the evaluation episodes, and
// closes the Port. The metrics of all finished training episodes are
// returned, even if an error occurs. If ctx is cancelled, the current
// episode is abandoned and ErrInterrupted is returned.
func (o *Online) Run(ctx context.Context) (history []tracker.EpisodeMetrics,
	err error) {
	defer func() {
		if closeErr := o.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for i := 0; i < o.settings.TotalEpisodes; i++ {
		m, err := o.runEpisode(ctx, o.recorder, true)
		if err != nil {
			return o.History(), err
		}
		o.logger.Printf("episode: %d/%d, time: %d, rew: %.2f, eps: %.2f",
			m.Episode+1, o.settings.TotalEpisodes, m.Steps, m.Return,
			m.Epsilon)

		for _, c := range o.checkpointers {
			if err := c.Checkpoint(m.Episode); err != nil {
				return o.History(), fmt.Errorf("run: %v", err)
			}
		}
	}

	if o.settings.EvalEpisodes > 0 {
		if _, err := o.Eval(ctx, o.settings.EvalEpisodes); err != nil {
			return o.History(), err
		}
	}
	return o.History(), nil
}

// Eval runs episodes greedy episodes without learning and returns their
// metrics. Eval must be called before the Port is closed.
func (o *Online) Eval(ctx context.Context,
	episodes int) ([]tracker.EpisodeMetrics, error) {
	r := tracker.NewRecorder()
	for i := 0; i < episodes; i++ {
		m, err := o.runEpisode(ctx, r, false)
		if err != nil {
			o.evalHistory = append(o.evalHistory, r.History()...)
			return r.History(), err
		}
		o.logger.Printf("eval: %d/%d, time: %d, rew: %.2f", i+1, episodes,
			m.Steps, m.Return)
	}

	o.evalHistory = append(o.evalHistory, r.History()...)
	return r.History(), nil
}

// Close closes the Port if it has not been closed yet
func (o *Online) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true

	if err := o.port.Close(); err != nil {
		if errors.Is(err, environment.ErrCommunication) {
			return err
		}
		return environment.CommunicationError("close", err)
	}
	return nil
}

// runEpisode runs a single episode, recording it with r. If learn is
// false, actions are selected greedily and no updates are performed.
func (o *Online) runEpisode(ctx context.Context, r *tracker.Recorder,
	learn bool) (tracker.EpisodeMetrics, error) {
	if o.closed {
		return tracker.EpisodeMetrics{}, fmt.Errorf("runEpisode: %w",
			environment.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return tracker.EpisodeMetrics{}, interrupted(err)
	}

	step, err := o.port.Reset(ctx)
	if err != nil {
		return tracker.EpisodeMetrics{}, o.portError(ctx, "reset", err)
	}
	if err := o.port.ObservationSpace().Conforms(step.Observation); err != nil {
		return tracker.EpisodeMetrics{}, fmt.Errorf("reset: %w", err)
	}
	r.Track(step)

	epsilon := 0.0
	for !step.Last() && r.Steps() < o.settings.MaxEnvSteps {
		if err := ctx.Err(); err != nil {
			return tracker.EpisodeMetrics{}, interrupted(err)
		}
		if learn {
			epsilon = o.epsilon
		}

		action, err := o.policy.Select(step.Observation, epsilon)
		if err != nil {
			return tracker.EpisodeMetrics{}, fmt.Errorf("select: %w", err)
		}

		next, err := o.port.Step(ctx, action)
		if err != nil {
			return tracker.EpisodeMetrics{}, o.portError(ctx, "step", err)
		}
		if err := o.port.ObservationSpace().Conforms(next.Observation); err != nil {
			return tracker.EpisodeMetrics{}, fmt.Errorf("step: %w", err)
		}
		r.Track(next)

		if learn && (!next.Last() || o.settings.LearnTerminal) {
			tdError, err := o.learner.Update(ts.NewTransition(step, action,
				next))
			if err != nil {
				return tracker.EpisodeMetrics{}, fmt.Errorf("update: %w", err)
			}
			if o.settings.Verbose {
				o.logger.Printf("step: %d, action: %d, rew: %.2f, "+
					"td error: %.4f", r.Steps(), action, next.Reward, tdError)
			}
		}
		if learn && !next.Last() {
			o.epsilon = o.settings.Decay.Next(o.epsilon)
		}

		step = next
	}

	if learn {
		epsilon = o.epsilon
	}
	// Sink failures are logged only, m is in the history regardless
	m, err := r.EndEpisode(ctx, epsilon)
	if err != nil {
		o.logger.Printf("runEpisode: %v", err)
	}
	return m, nil
}

// portError converts an error returned by the Port into an interruption
// if ctx was cancelled, or into a communication error otherwise
func (o *Online) portError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return interrupted(ctx.Err())
	}
	if errors.Is(err, environment.ErrCommunication) {
		return fmt.Errorf("%v: %w", op, err)
	}
	return environment.CommunicationError(op, err)
}

func interrupted(cause error) error {
	return fmt.Errorf("%w: %v", ErrInterrupted, cause)
}
