package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile string
	outputDir  string
	seed       uint64
	verbose    bool
)

func rootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "wsnagent",
		Short:         "Learn link quality thresholds for sensor networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"JSON experiment configuration, overridden by flags")
	rootCommand.PersistentFlags().StringVarP(&outputDir, "out", "o",
		"results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 0,
		"Seed of the agent and simulator")
	rootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log every update")

	rootCommand.AddCommand(trainCommand())
	rootCommand.AddCommand(serveCommand())
	rootCommand.AddCommand(plotCommand())
	return rootCommand
}

// signalContext returns a context which is cancelled on SIGINT or
// SIGTERM, or when the returned function is called
func signalContext() (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	doneCh := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()

	var closed bool
	return ctx, func() {
		if !closed {
			closed = true
			close(doneCh)
		}
	}
}
