package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/redis/go-redis/v9"
	"github.com/samuelfneumann/wsnlearn/agent/approx"
	"github.com/samuelfneumann/wsnlearn/environment"
	"github.com/samuelfneumann/wsnlearn/experiment"
	"github.com/samuelfneumann/wsnlearn/experiment/checkpointer"
	"github.com/samuelfneumann/wsnlearn/experiment/plotter"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	"github.com/samuelfneumann/wsnlearn/solver"
	"github.com/spf13/cobra"
)

// Files written to the output directory of a training run
const (
	ConfigFile      = "config.json"
	HistoryFile     = "history.gob"
	HistoryJSONFile = "history.json"
	LogFile         = "train.log"
)

type trainFlags struct {
	episodes      int
	steps         int
	eval          int
	epsilon       float64
	epsilonMin    float64
	epsilonDecay  float64
	gamma         float64
	learnTerminal bool

	backend  string
	host     string
	port     int
	simTime  float64
	stepTime float64
	startSim bool
	command  []string
	simArgs  map[string]string

	agent        string
	hidden       []int
	output       string
	learningRate float64

	checkpoint int
	keep       bool
	redisAddr  string
	redisKey   string
	progress   bool
}

func trainCommand() *cobra.Command {
	var f trainFlags
	def := experiment.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent on a simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.config(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return train(ctx, c, f, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.episodes, "episodes", "e", def.TotalEpisodes,
		"Number of training episodes")
	flags.IntVar(&f.steps, "steps", def.MaxEnvSteps,
		"Maximum number of steps per episode")
	flags.IntVar(&f.eval, "eval", def.EvalEpisodes,
		"Number of greedy evaluation episodes after training")
	flags.Float64Var(&f.epsilon, "epsilon", def.Epsilon,
		"Initial exploration rate")
	flags.Float64Var(&f.epsilonMin, "epsilon-min", def.EpsilonMin,
		"Minimum exploration rate")
	flags.Float64Var(&f.epsilonDecay, "epsilon-decay", def.EpsilonDecay,
		"Multiplicative decay of the exploration rate per step")
	flags.Float64Var(&f.gamma, "gamma", def.Gamma, "Discount factor")
	flags.BoolVar(&f.learnTerminal, "learn-terminal", def.LearnTerminal,
		"Also learn from transitions into terminal states")

	flags.StringVar(&f.backend, "backend", string(def.EnvConf.Backend),
		fmt.Sprintf("Simulator backend %v", environment.Backends()))
	flags.StringVar(&f.host, "host", def.EnvConf.Host, "Simulator host")
	flags.IntVarP(&f.port, "port", "p", def.EnvConf.Port, "Simulator port")
	flags.Float64Var(&f.simTime, "sim-time", def.EnvConf.SimTime,
		"Simulated seconds per episode")
	flags.Float64Var(&f.stepTime, "step-time", def.EnvConf.StepTime,
		"Simulated seconds per step")
	flags.BoolVar(&f.startSim, "start-sim", def.EnvConf.StartSim,
		"Launch the simulator instead of attaching to a running one")
	flags.StringSliceVar(&f.command, "sim-command", nil,
		"Command launching the simulator")
	flags.StringToStringVar(&f.simArgs, "sim-arg", nil,
		"Scenario arguments passed to the simulator")

	flags.StringVar(&f.agent, "agent", string(def.AgentConf.Type),
		"Approximator type, MLP or Linear")
	flags.IntSliceVar(&f.hidden, "hidden", nil, "Hidden layer sizes")
	flags.StringVar(&f.output, "output", string(def.AgentConf.Output),
		"MLP output layer, Linear or Softmax")
	flags.Float64Var(&f.learningRate, "lr", solver.DefaultLearningRate,
		"Learning rate of the approximator")

	flags.IntVar(&f.checkpoint, "checkpoint", def.CheckpointInterval,
		"Episodes between approximator checkpoints, 0 to disable")
	flags.BoolVar(&f.keep, "keep-checkpoints", def.KeepCheckpoints,
		"Keep every checkpoint instead of only the latest")
	flags.StringVar(&f.redisAddr, "redis", "",
		"Redis address to push episode metrics to")
	flags.StringVar(&f.redisKey, "redis-key", tracker.DefaultRedisKey,
		"Redis list episode metrics are pushed onto")
	flags.BoolVar(&f.progress, "progress", true, "Show a progress bar")

	return cmd
}

// config returns the experiment configuration given by the config file
// with every flag set on the command line applied on top
func (f trainFlags) config(cmd *cobra.Command) (experiment.Config, error) {
	c := experiment.DefaultConfig()
	if configFile != "" {
		var err error
		if c, err = experiment.Load(configFile); err != nil {
			return c, err
		}
	}

	set := cmd.Flags().Changed
	if set("episodes") {
		c.TotalEpisodes = f.episodes
	}
	if set("steps") {
		c.MaxEnvSteps = f.steps
	}
	if set("eval") {
		c.EvalEpisodes = f.eval
	}
	if set("epsilon") {
		c.Epsilon = f.epsilon
	}
	if set("epsilon-min") {
		c.EpsilonMin = f.epsilonMin
	}
	if set("epsilon-decay") {
		c.EpsilonDecay = f.epsilonDecay
	}
	if set("gamma") {
		c.Gamma = f.gamma
	}
	if set("learn-terminal") {
		c.LearnTerminal = f.learnTerminal
	}
	if set("seed") {
		c.Seed = seed
		c.EnvConf.Seed = seed
	}
	if set("verbose") {
		c.Verbose = verbose
	}
	if set("out") {
		c.OutputDir = outputDir
	}

	if set("backend") {
		c.EnvConf.Backend = environment.Backend(f.backend)
	}
	if set("host") {
		c.EnvConf.Host = f.host
	}
	if set("port") {
		c.EnvConf.Port = f.port
	}
	if set("sim-time") {
		c.EnvConf.SimTime = f.simTime
	}
	if set("step-time") {
		c.EnvConf.StepTime = f.stepTime
	}
	if set("start-sim") {
		c.EnvConf.StartSim = f.startSim
	}
	if set("sim-command") {
		c.EnvConf.Command = f.command
	}
	if set("sim-arg") {
		c.EnvConf.SimArgs = f.simArgs
	}

	if set("agent") {
		c.AgentConf.Type = approx.Type(f.agent)
	}
	if set("hidden") {
		c.AgentConf.Hidden = f.hidden
		c.AgentConf.Biases = nil
		c.AgentConf.Activations = nil
	}
	if set("output") {
		c.AgentConf.Output = approx.OutputType(f.output)
	}
	if set("lr") {
		c.AgentConf.LearningRate = f.learningRate
		s, err := solver.NewDefaultAdam(f.learningRate, 1)
		if err != nil {
			return c, fmt.Errorf("config: %v", err)
		}
		c.AgentConf.Solver = s
	}
	if set("checkpoint") {
		c.CheckpointInterval = f.checkpoint
	}
	if set("keep-checkpoints") {
		c.KeepCheckpoints = f.keep
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config: %v", err)
	}
	return c, nil
}

// train runs the experiment described by c and saves its results. An
// interrupted experiment is not an error.
func train(ctx context.Context, c experiment.Config, f trainFlags,
	out io.Writer) error {
	if err := os.MkdirAll(c.OutputDir, os.ModePerm); err != nil {
		return err
	}
	if err := c.Save(filepath.Join(c.OutputDir, ConfigFile)); err != nil {
		return err
	}

	// Episode lines go to the log file when the progress bar owns the
	// terminal
	logOut := io.Writer(out)
	if f.progress {
		logFile, err := os.Create(filepath.Join(c.OutputDir, LogFile))
		if err != nil {
			return err
		}
		defer logFile.Close()
		logOut = logFile
	}
	logger := log.New(logOut, "", log.LstdFlags)

	recorder := tracker.NewRecorder()
	if f.progress {
		recorder.Register(newProgressSink(out, c.TotalEpisodes))
	}
	if f.redisAddr != "" {
		recorder.Register(tracker.NewRedisSink(&redis.Options{
			Addr:        f.redisAddr,
			DialTimeout: 2 * time.Second,
		}, f.redisKey))
	}
	defer recorder.Close()

	port, err := c.EnvConf.Create()
	if err != nil {
		return err
	}
	exp, err := c.CreateExp(port, recorder, logger)
	if err != nil {
		port.Close()
		return err
	}

	history, runErr := exp.Run(ctx)
	interrupted := errors.Is(runErr, experiment.ErrInterrupted)

	if err := save(c, recorder, exp); err != nil {
		return err
	}
	summarize(out, history, exp.EvalHistory(), interrupted)

	if interrupted {
		return nil
	}
	return runErr
}

// save writes the history, charts and final approximator of a run to
// its output directory
func save(c experiment.Config, r *tracker.Recorder,
	exp *experiment.Online) error {
	if len(r.History()) == 0 {
		return nil
	}

	if err := r.Save(filepath.Join(c.OutputDir, HistoryFile)); err != nil {
		return err
	}
	if err := r.SaveJSON(filepath.Join(c.OutputDir,
		HistoryJSONFile)); err != nil {
		return err
	}
	if err := plotter.Save(r.History(), c.OutputDir); err != nil {
		return err
	}

	if object, ok := exp.Approximator().(checkpointer.Serializable); ok {
		filename := filepath.Join(c.OutputDir, experiment.CheckpointFile)
		if err := checkpointer.Save(object, filename); err != nil {
			return err
		}
	}
	return nil
}

// summarize prints the mean steps and return of the training and
// evaluation episodes
func summarize(out io.Writer, history, eval []tracker.EpisodeMetrics,
	interrupted bool) {
	if interrupted {
		fmt.Fprintln(out, aurora.Yellow("training interrupted"))
	}
	fmt.Fprintln(out, aurora.Bold(fmt.Sprintf("training: %d episodes",
		len(history))))
	printMeans(out, history)

	if len(eval) > 0 {
		fmt.Fprintln(out, aurora.Bold(fmt.Sprintf("evaluation: %d episodes",
			len(eval))))
		printMeans(out, eval)
	}
}

func printMeans(out io.Writer, history []tracker.EpisodeMetrics) {
	if len(history) == 0 {
		return
	}

	var steps, ret float64
	for _, m := range history {
		steps += float64(m.Steps)
		ret += m.Return
	}
	steps /= float64(len(history))
	ret /= float64(len(history))

	color := aurora.Green
	if ret < 0 {
		color = aurora.Red
	}
	fmt.Fprintf(out, "  mean steps: %.2f, mean return: %v\n", steps,
		color(fmt.Sprintf("%.2f", ret)))
}
