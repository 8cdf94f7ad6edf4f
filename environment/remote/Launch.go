package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samuelfneumann/wsnlearn/environment"
)

// ConnectTimeout is how long a Client waits for a Server to answer
const ConnectTimeout = 30 * time.Second

// Process is a simulator launched as a child process
type Process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout *bytes.Buffer
	stderr *bytes.Buffer

	exited chan struct{} // Closed once the simulator has exited
	err    error         // Exit status, set before exited is closed
}

// Args returns the command line arguments passed to a launched
// simulator: the arguments of c.Command, followed by the connection
// parameters and then c.SimArgs sorted by name.
func Args(c environment.Config) []string {
	var args []string
	if len(c.Command) > 1 {
		args = append(args, c.Command[1:]...)
	}
	args = append(args,
		"--port="+strconv.Itoa(c.Port),
		"--simTime="+strconv.FormatFloat(c.SimTime, 'f', -1, 64),
		"--stepTime="+strconv.FormatFloat(c.StepTime, 'f', -1, 64),
		"--simSeed="+strconv.FormatUint(c.Seed, 10),
	)

	names := make([]string, 0, len(c.SimArgs))
	for name := range c.SimArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, fmt.Sprintf("--%v=%v", name, c.SimArgs[name]))
	}
	return args
}

// Launch starts the simulator command of c
func Launch(c environment.Config) (*Process, error) {
	if len(c.Command) == 0 {
		return nil, errors.New("launch: no simulator command")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, c.Command[0], Args(c)...)

	p := &Process{
		cmd:    cmd,
		cancel: cancel,
		stdout: new(bytes.Buffer),
		stderr: new(bytes.Buffer),
		exited: make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("launch: could not start %v: %v",
			c.Command[0], err)
	}
	go func() {
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

// Stop kills the simulator if it is still running and waits for it to
// exit
func (p *Process) Stop() error {
	p.cancel()

	select {
	case <-p.exited:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("stop: simulator %v did not exit", p.cmd.Path)
	}
	return nil
}

// Exited returns a channel which is closed once the simulator has
// exited
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// exitError describes why an exited simulator stopped. It must only be
// called after Exited is closed.
func (p *Process) exitError() error {
	stderr := strings.TrimSpace(p.stderr.String())
	if p.err == nil {
		return fmt.Errorf("simulator %v exited: %v", p.cmd.Path, stderr)
	}
	return fmt.Errorf("simulator %v exited: %v: %v", p.cmd.Path, p.err,
		stderr)
}

// Output returns everything the simulator has written to stdout and
// stderr. Output should only be called after Stop.
func (p *Process) Output() (stdout, stderr string) {
	return p.stdout.String(), p.stderr.String()
}
