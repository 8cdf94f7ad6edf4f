// Package experiment implements the episodic control loop which drives
// an agent's interaction with a simulated environment.
package experiment

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/samuelfneumann/wsnlearn/agent/approx"
	"github.com/samuelfneumann/wsnlearn/agent/policy"
	"github.com/samuelfneumann/wsnlearn/agent/qlearning"
	"github.com/samuelfneumann/wsnlearn/environment"
	"github.com/samuelfneumann/wsnlearn/experiment/checkpointer"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
)

// CheckpointFile is the name of the approximator checkpoint written to
// the output directory
const CheckpointFile = "approx.gob"

// Config represents a configuration of an online experiment
type Config struct {
	TotalEpisodes int
	MaxEnvSteps   int
	EvalEpisodes  int // Greedy episodes run after training

	Epsilon      float64 // Initial exploration rate
	EpsilonMin   float64
	EpsilonDecay float64
	Gamma        float64

	Seed          uint64
	LearnTerminal bool // Also train on the transition into a terminal state
	Verbose       bool // Log the TD error of each update

	EnvConf   environment.Config
	AgentConf approx.Config

	// CheckpointInterval is the number of episodes between approximator
	// checkpoints, 0 to disable checkpointing
	CheckpointInterval int
	KeepCheckpoints    bool // Keep every checkpoint instead of the latest
	OutputDir          string
}

// DefaultConfig returns the default experiment configuration
func DefaultConfig() Config {
	return Config{
		TotalEpisodes: 100,
		MaxEnvSteps:   100,
		Epsilon:       1.0,
		EpsilonMin:    0.01,
		EpsilonDecay:  0.999,
		Gamma:         qlearning.DefaultGamma,
		EnvConf:       environment.DefaultConfig(),
		AgentConf:     approx.DefaultConfig(),
		OutputDir:     "results",
	}
}

// Validate returns an error describing whether or not the configuration
// is valid
func (c Config) Validate() error {
	if c.TotalEpisodes < 1 {
		return fmt.Errorf("validate: total episodes must be positive\n\t"+
			"want(>0)\n\thave(%v)", c.TotalEpisodes)
	}
	if c.MaxEnvSteps < 1 {
		return fmt.Errorf("validate: max environment steps must be "+
			"positive\n\twant(>0)\n\thave(%v)", c.MaxEnvSteps)
	}
	if c.EvalEpisodes < 0 {
		return fmt.Errorf("validate: eval episodes must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.EvalEpisodes)
	}
	if err := c.decay().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if c.Epsilon < c.EpsilonMin || c.Epsilon > 1 {
		return fmt.Errorf("validate: initial epsilon out of range\n\t"+
			"want([%v, 1])\n\thave(%v)", c.EpsilonMin, c.Epsilon)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount out of range\n\t"+
			"want([0, 1])\n\thave(%v)", c.Gamma)
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("validate: checkpoint interval must be "+
			"non-negative\n\twant(>=0)\n\thave(%v)", c.CheckpointInterval)
	}
	if c.CheckpointInterval > 0 && c.OutputDir == "" {
		return fmt.Errorf("validate: checkpointing requires an output " +
			"directory")
	}
	if err := c.EnvConf.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.AgentConf.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

func (c Config) decay() policy.Decay {
	return policy.Decay{Min: c.EpsilonMin, Rate: c.EpsilonDecay}
}

func (c Config) settings() Settings {
	return Settings{
		TotalEpisodes: c.TotalEpisodes,
		MaxEnvSteps:   c.MaxEnvSteps,
		EvalEpisodes:  c.EvalEpisodes,
		Epsilon:       c.Epsilon,
		Decay:         c.decay(),
		LearnTerminal: c.LearnTerminal,
		Verbose:       c.Verbose,
	}
}

// CreateExp creates the approximator, policy and trainer described by
// the Config for the spaces of port and returns an Online experiment
// which runs them on port. The experiment takes ownership of port.
func (c Config) CreateExp(port environment.Port, r *tracker.Recorder,
	logger *log.Logger) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}

	features := port.ObservationSpace().Shape
	actions := port.ActionSpace().N
	approximator, err := c.AgentConf.Create(features, actions)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create approximator: "+
			"%v", err)
	}

	trainer, err := qlearning.New(approximator, c.Gamma)
	if err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}
	selector := policy.NewEGreedy(approximator, c.Seed)

	exp, err := NewOnline(port, selector, trainer, c.settings(), r, logger)
	if err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}
	exp.approximator = approximator

	if c.CheckpointInterval > 0 {
		object, ok := approximator.(checkpointer.Serializable)
		if !ok {
			return nil, fmt.Errorf("createExp: approximator %T cannot be "+
				"checkpointed", approximator)
		}
		if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("createExp: %v", err)
		}

		filename := checkpointer.Fixed(filepath.Join(c.OutputDir,
			CheckpointFile))
		if c.KeepCheckpoints {
			ext := filepath.Ext(CheckpointFile)
			base := strings.TrimSuffix(CheckpointFile, ext) + "-"
			filename = checkpointer.FilenameEnumerator(0,
				filepath.Join(c.OutputDir, base), ext)
		}
		check, err := checkpointer.NewNEpisode(c.CheckpointInterval, object,
			filename)
		if err != nil {
			return nil, fmt.Errorf("createExp: %v", err)
		}
		exp.Register(check)
	}

	return exp, nil
}

// Load reads a JSON Config from filename. Fields missing from the file
// keep their default values.
func Load(filename string) (Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("load: %v", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("load: could not decode %v: %v", filename, err)
	}
	return c, nil
}

// Save writes the Config to filename as indented JSON
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}
