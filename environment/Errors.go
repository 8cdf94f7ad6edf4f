package environment

import (
	"errors"
	"fmt"
)

var (
	// ErrCommunication is returned whenever resetting, stepping or
	// closing the simulator connection fails. It is fatal to the run.
	ErrCommunication = errors.New("environment communication error")

	// ErrShapeMismatch is returned when an observation does not have the
	// dimensionality advertised by the observation space
	ErrShapeMismatch = errors.New("observation shape mismatch")

	// ErrClosed is returned when a closed Port is used
	ErrClosed = errors.New("environment closed")

	// ErrInvalidAction is returned when stepping with an action outside
	// of the action space
	ErrInvalidAction = errors.New("invalid action")
)

// CommunicationError wraps err so that errors.Is(err, ErrCommunication)
// holds. The op argument names the failed operation.
func CommunicationError(op string, err error) error {
	return fmt.Errorf("%v: %w: %v", op, ErrCommunication, err)
}
