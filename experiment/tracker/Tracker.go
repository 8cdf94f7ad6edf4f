// Package tracker records per-episode learning metrics during an
// experiment and saves them once the experiment has finished.
package tracker

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/wsnlearn/timestep"
)

// EpisodeMetrics summarizes a single episode
type EpisodeMetrics struct {
	Episode int     `json:"episode"`
	Steps   int     `json:"steps"`
	Return  float64 `json:"return"`
	Epsilon float64 `json:"epsilon"`
}

func (e EpisodeMetrics) String() string {
	return fmt.Sprintf("episode: %v, steps: %v, return: %.2f, eps: %.3f",
		e.Episode, e.Steps, e.Return, e.Epsilon)
}

// Sink receives each EpisodeMetrics as soon as its episode ends
type Sink interface {
	Record(ctx context.Context, m EpisodeMetrics) error
	Close() error
}

// Recorder accumulates the number of steps and the return of the
// current episode from the TimeSteps it tracks, and keeps the ordered
// history of finished episodes.
//
// The reward of every TimeStep after the first in an episode is added
// to the return, including the reward of the last TimeStep.
type Recorder struct {
	steps         int
	currentReturn float64

	history []EpisodeMetrics
	sinks   []Sink
}

// NewRecorder returns a new Recorder which forwards finished episodes
// to sinks
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

// Register adds a Sink to the (possibly already running) Recorder
func (r *Recorder) Register(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Track tracks the reward seen on a TimeStep. A First TimeStep starts
// a new episode.
func (r *Recorder) Track(step ts.TimeStep) {
	if step.First() {
		r.steps = 0
		r.currentReturn = 0
		return
	}
	r.steps++
	r.currentReturn += step.Reward
}

// Steps returns the number of steps taken in the current episode
func (r *Recorder) Steps() int {
	return r.steps
}

// Return returns the return accumulated in the current episode
func (r *Recorder) Return() float64 {
	return r.currentReturn
}

// EndEpisode appends the metrics of the current episode to the history
// and sends them to each Sink. Every Sink is called and the appended
// metrics are returned even if a Sink fails.
func (r *Recorder) EndEpisode(ctx context.Context,
	epsilon float64) (EpisodeMetrics, error) {
	m := EpisodeMetrics{
		Episode: len(r.history),
		Steps:   r.steps,
		Return:  r.currentReturn,
		Epsilon: epsilon,
	}
	r.history = append(r.history, m)

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Record(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return m, fmt.Errorf("endEpisode: could not record episode "+
			"%v: %w", m.Episode, errors.Join(errs...))
	}
	return m, nil
}

// History returns a copy of the metrics of all finished episodes
func (r *Recorder) History() []EpisodeMetrics {
	return append([]EpisodeMetrics{}, r.history...)
}

// Close closes all Sinks
func (r *Recorder) Close() error {
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Save gob encodes the history to filename
func (r *Recorder) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.history); err != nil {
		return fmt.Errorf("save: could not encode history: %v", err)
	}
	return nil
}

// SaveJSON saves the history to filename as an indented JSON array
func (r *Recorder) SaveJSON(filename string) error {
	data, err := json.MarshalIndent(r.History(), "", "\t")
	if err != nil {
		return fmt.Errorf("saveJSON: could not marshal history: %v", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("saveJSON: %v", err)
	}
	return nil
}

// LoadData loads a history saved with Recorder.Save
func LoadData(filename string) ([]EpisodeMetrics, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %v", err)
	}
	defer file.Close()

	var data []EpisodeMetrics
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %v", err)
	}
	return data, nil
}

// LoadJSON loads a history saved with Recorder.SaveJSON
func LoadJSON(filename string) ([]EpisodeMetrics, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("loadJSON: %v", err)
	}

	var history []EpisodeMetrics
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("loadJSON: could not decode data: %v", err)
	}
	return history, nil
}
