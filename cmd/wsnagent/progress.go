package main

import (
	"context"
	"io"

	"github.com/gosuri/uilive"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	"github.com/samuelfneumann/wsnlearn/utils/progressbar"
)

// progressSink redraws a progress bar with the latest episode summary
// each time an episode finishes
type progressSink struct {
	writer *uilive.Writer
	bar    *progressbar.ProgressBar
}

func newProgressSink(out io.Writer, episodes int) *progressSink {
	writer := uilive.New()
	writer.Out = out
	writer.Start()

	return &progressSink{
		writer: writer,
		bar:    progressbar.New(writer, 40, episodes),
	}
}

// Record implements the tracker.Sink interface
func (p *progressSink) Record(_ context.Context,
	m tracker.EpisodeMetrics) error {
	p.bar.Increment()
	if err := p.bar.Display(m.String()); err != nil {
		return err
	}
	return p.writer.Flush()
}

// Close implements the tracker.Sink interface
func (p *progressSink) Close() error {
	p.writer.Stop()
	return nil
}
