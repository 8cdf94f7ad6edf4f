package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/samuelfneumann/wsnlearn/environment"
	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

func init() {
	environment.Register(environment.Remote, func(c environment.Config) (
		environment.Port, error) {
		return Dial(context.Background(), c)
	})
}

// Client implements environment.Port for a simulator served by a
// Server. The observation and action spaces are queried once, when the
// Client is created.
type Client struct {
	baseURL string
	http    *http.Client

	obs    environment.ObservationSpace
	action environment.ActionSpace

	sim    *Process // Simulator launched by the Client, if any
	closed bool
}

// Dial connects to the simulator described by c. If c.StartSim is set
// and c.Command is not empty, the simulator is launched first and
// stopped when the Client is closed.
func Dial(ctx context.Context, c environment.Config) (*Client, error) {
	var sim *Process
	if c.StartSim && len(c.Command) > 0 {
		var err error
		if sim, err = Launch(c); err != nil {
			return nil, environment.CommunicationError("dial", err)
		}
	}

	client, err := connect(ctx, "http://"+c.Address(), sim)
	if err != nil {
		if sim != nil {
			sim.Stop()
		}
		return nil, err
	}
	client.sim = sim
	return client, nil
}

// NewClient returns a new Client for the Server at baseURL. NewClient
// waits until the Server answers or ctx is done, retrying for at most
// ConnectTimeout.
func NewClient(ctx context.Context, baseURL string) (*Client, error) {
	return connect(ctx, baseURL, nil)
}

// connect creates a Client for the Server at baseURL. If sim is not
// nil, connect gives up as soon as the simulator exits.
func connect(ctx context.Context, baseURL string, sim *Process) (*Client,
	error) {
	var exited <-chan struct{}
	if sim != nil {
		exited = sim.Exited()
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	var spaces Spaces
	for {
		err := c.do(ctx, http.MethodGet, SpacesPath, nil, &spaces)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, environment.CommunicationError("newClient", err)
		case <-exited:
			return nil, environment.CommunicationError("newClient",
				sim.exitError())
		case <-time.After(50 * time.Millisecond):
		}
	}

	c.obs = spaces.Observation
	c.action = spaces.Action
	return c, nil
}

// ObservationSpace implements the environment.Port interface
func (c *Client) ObservationSpace() environment.ObservationSpace {
	return c.obs
}

// ActionSpace implements the environment.Port interface
func (c *Client) ActionSpace() environment.ActionSpace {
	return c.action
}

// Reset implements the environment.Port interface
func (c *Client) Reset(ctx context.Context) (ts.TimeStep, error) {
	if c.closed {
		return ts.TimeStep{}, environment.CommunicationError("reset",
			environment.ErrClosed)
	}

	var step Step
	if err := c.do(ctx, http.MethodPost, ResetPath, nil, &step); err != nil {
		return ts.TimeStep{}, environment.CommunicationError("reset", err)
	}
	return step.toTimeStep(true)
}

// Step implements the environment.Port interface
func (c *Client) Step(ctx context.Context, action int) (ts.TimeStep, error) {
	if c.closed {
		return ts.TimeStep{}, environment.CommunicationError("step",
			environment.ErrClosed)
	}

	var step Step
	err := c.do(ctx, http.MethodPost, StepPath, Action{action}, &step)
	if err != nil {
		return ts.TimeStep{}, environment.CommunicationError("step", err)
	}
	return step.toTimeStep(false)
}

// Close closes the remote Port and stops the simulator if the Client
// launched it
func (c *Client) Close() error {
	if c.closed {
		return environment.ErrClosed
	}
	c.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.do(ctx, http.MethodPost, ClosePath, nil, nil)

	if c.sim != nil {
		if stopErr := c.sim.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	c.http.CloseIdleConnections()

	if err != nil {
		return environment.CommunicationError("close", err)
	}
	return nil
}

// do sends a request with body in, decoding the response into out if
// out is not nil
func (c *Client) do(ctx context.Context, method, path string, in,
	out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var e errorBody
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return statusError(resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %v", err)
	}
	return nil
}

// statusError converts a failed response into an error, keeping the
// kind of error reported by the Server
func statusError(status int, msg string) error {
	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = environment.ErrInvalidAction
	case http.StatusGone:
		kind = environment.ErrClosed
	default:
		kind = errors.New(http.StatusText(status))
	}
	return fmt.Errorf("%w: %v", kind, msg)
}
