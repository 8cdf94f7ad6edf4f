package main

import (
	"fmt"
	"log"
	"os"

	"github.com/samuelfneumann/wsnlearn/environment"
	"github.com/samuelfneumann/wsnlearn/environment/remote"
	"github.com/samuelfneumann/wsnlearn/environment/wsn"
	"github.com/samuelfneumann/wsnlearn/experiment"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	backend  string
	host     string
	port     int
	simTime  float64
	stepTime float64
	simSeed  uint64

	// Scenario arguments of the surrogate simulator
	load    string
	optimum string
	noise   string
}

// serveCommand serves a simulator for the remote backend. Its flags
// match the arguments remote.Launch passes to a simulator, so that
// wsnagent serve can itself be launched as a simulator command.
func serveCommand() *cobra.Command {
	var f serveFlags
	def := environment.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a simulator to remote agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.config(cmd)
			if err != nil {
				return err
			}
			if c.Backend == environment.Remote {
				return fmt.Errorf("serve: cannot serve the %v backend",
					environment.Remote)
			}

			port, err := c.Create()
			if err != nil {
				return err
			}

			logger := log.New(os.Stderr, "wsnagent serve: ", log.LstdFlags)
			server := remote.NewServer(port, fmt.Sprintf("%v:%d", f.host,
				c.Port), logger)

			ctx, cancel := signalContext()
			defer cancel()
			return server.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.backend, "backend", string(def.Backend),
		"Simulator backend to serve")
	flags.StringVar(&f.host, "host", "", "Interface to listen on")
	flags.IntVarP(&f.port, "port", "p", def.Port, "Port to listen on")
	flags.Float64Var(&f.simTime, "simTime", def.SimTime,
		"Simulated seconds per episode")
	flags.Float64Var(&f.stepTime, "stepTime", def.StepTime,
		"Simulated seconds per step")
	flags.Uint64Var(&f.simSeed, "simSeed", def.Seed, "Simulator seed")
	flags.StringVar(&f.load, wsn.ArgLoad, "", "Offered traffic load")
	flags.StringVar(&f.optimum, wsn.ArgOptimum, "",
		"Normalized threshold with the best throughput")
	flags.StringVar(&f.noise, wsn.ArgNoise, "",
		"Standard deviation of the measurement noise")

	return cmd
}

// config returns the simulator configuration of the config file with
// the flags set on the command line applied on top
func (f serveFlags) config(cmd *cobra.Command) (environment.Config, error) {
	c := environment.DefaultConfig()
	if configFile != "" {
		exp, err := experiment.Load(configFile)
		if err != nil {
			return c, err
		}
		c = exp.EnvConf
	}
	c.StartSim = false

	set := cmd.Flags().Changed
	if set("backend") {
		c.Backend = environment.Backend(f.backend)
	}
	if set("port") {
		c.Port = f.port
	}
	if set("simTime") {
		c.SimTime = f.simTime
	}
	if set("stepTime") {
		c.StepTime = f.stepTime
	}
	if set("simSeed") {
		c.Seed = f.simSeed
	} else if set("seed") {
		c.Seed = seed
	}

	args := map[string]string{
		wsn.ArgLoad:    f.load,
		wsn.ArgOptimum: f.optimum,
		wsn.ArgNoise:   f.noise,
	}
	for name, value := range args {
		if !set(name) {
			continue
		}
		if c.SimArgs == nil {
			c.SimArgs = make(map[string]string)
		}
		c.SimArgs[name] = value
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config: %v", err)
	}
	return c, nil
}
