// Package checkpointer periodically saves serializable objects, such as
// value approximators, to disk during an experiment.
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects at the end of
// episodes
type Checkpointer interface {
	// Checkpoint is called after each finished episode with the
	// episode's index
	Checkpoint(episode int) error
}

// Save gob encodes object to filename
func Save(object Serializable, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		return fmt.Errorf("save: could not encode object: %v", err)
	}
	return nil
}

// Load decodes the gob encoded object saved to filename into object
func Load(object Serializable, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open checkpoint file: %v", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode object: %v", err)
	}
	return nil
}
