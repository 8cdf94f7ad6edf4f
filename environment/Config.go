package environment

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Backend names a simulator binding that can create Ports
type Backend string

// Built-in backends. The gym backend is only registered when the module
// is built with the gym build tag.
const (
	WSN    Backend = "wsn"
	Remote Backend = "remote"
	Gym    Backend = "gym"
)

// Factory creates a new Port from a Config
type Factory func(c Config) (Port, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[Backend]Factory)
)

// Register makes a simulator binding available under the name b.
// Register panics if called twice with the same name.
func Register(b Backend, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if f == nil {
		panic("register: nil factory for backend " + string(b))
	}
	if _, dup := backends[b]; dup {
		panic("register: backend registered twice: " + string(b))
	}
	backends[b] = f
}

// Backends returns the sorted names of all registered backends
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Config describes how to connect to a simulator. Configs are JSON
// serializable.
type Config struct {
	Backend Backend

	// Simulator connection parameters
	Host     string
	Port     int
	StepTime float64 // Simulated seconds per control interval
	SimTime  float64 // Simulated seconds per episode, 0 for unbounded

	// StartSim determines whether the simulator process is launched by
	// this run or attached to externally
	StartSim bool
	Command  []string // Command used to launch the simulator
	SimArgs  map[string]string

	Seed  uint64
	EnvID string // Environment ID for the gym backend
}

// DefaultConfig returns the default simulator configuration, which
// mirrors the defaults of the ns-3 congestion control scenario.
func DefaultConfig() Config {
	return Config{
		Backend:  WSN,
		Host:     "localhost",
		Port:     5555,
		StepTime: 0.1,
		SimTime:  100,
		StartSim: true,
		EnvID:    "ns3-v0",
	}
}

// Validate returns an error describing whether or not the configuration
// is valid
func (c Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("validate: no backend specified")
	}
	if c.StepTime <= 0 {
		return fmt.Errorf("validate: step time must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.StepTime)
	}
	if c.SimTime < 0 {
		return fmt.Errorf("validate: simulation time must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.SimTime)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("validate: invalid port\n\twant([0, 65535])"+
			"\n\thave(%v)", c.Port)
	}
	return nil
}

// EpisodeSteps returns the number of control intervals that fit into a
// single simulated episode, or 0 if episodes are not time-bounded
func (c Config) EpisodeSteps() int {
	if c.SimTime == 0 || c.StepTime <= 0 {
		return 0
	}
	return int(math.Round(c.SimTime / c.StepTime))
}

// Address returns the host:port address of the simulator
func (c Config) Address() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%v:%d", host, c.Port)
}

// Create returns the Port described by the Config
func (c Config) Create() (Port, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	backendsMu.RLock()
	f, ok := backends[c.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("create: no such backend %v, have %v",
			c.Backend, Backends())
	}

	port, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("create: could not create %v environment: %w",
			c.Backend, err)
	}

	if err := port.ObservationSpace().Validate(); err != nil {
		port.Close()
		return nil, fmt.Errorf("create: %v", err)
	}
	if err := port.ActionSpace().Validate(); err != nil {
		port.Close()
		return nil, fmt.Errorf("create: %v", err)
	}
	return port, nil
}
