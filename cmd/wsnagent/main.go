// Command wsnagent trains an epsilon-greedy Q-learning agent to choose
// the link quality threshold of a wireless sensor network.
//
// Usage:
//
//	wsnagent train [flags]   run a training experiment
//	wsnagent serve [flags]   serve a simulator over HTTP
//	wsnagent plot [flags]    draw the learning charts of a finished run
//
// Interrupting a training run with SIGINT or SIGTERM stops it at the
// next step, saves the results gathered so far and exits with status 0.
package main

import (
	"log"
	"os"

	// Simulator backends
	_ "github.com/samuelfneumann/wsnlearn/environment/remote"
	_ "github.com/samuelfneumann/wsnlearn/environment/wsn"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("wsnagent: ")

	if err := rootCommand().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
