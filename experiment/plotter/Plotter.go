// Package plotter draws learning curves from the episode history of an
// experiment, as a PNG image or an interactive HTML page.
package plotter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samuelfneumann/wsnlearn/experiment/tracker"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default chart filenames
const (
	PNGFile  = "learning.png"
	HTMLFile = "learning.html"
)

// Series is a single learning curve, one value per episode
type Series struct {
	Name   string
	Values []float64
}

// Curves returns the steps and return learning curves of history
func Curves(history []tracker.EpisodeMetrics) []Series {
	steps := Series{Name: "Steps", Values: make([]float64, len(history))}
	returns := Series{Name: "Reward", Values: make([]float64, len(history))}

	for i, m := range history {
		steps.Values[i] = float64(m.Steps)
		returns.Values[i] = m.Return
	}
	return []Series{steps, returns}
}

// SavePNG saves the learning curves of history to filename as a PNG
// image, creating the parent directory if needed
func SavePNG(history []tracker.EpisodeMetrics, filename string) error {
	if len(history) == 0 {
		return fmt.Errorf("savePNG: no episodes to plot")
	}

	p := plot.New()
	p.Title.Text = "Learning Curve"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Value"

	for i, s := range Curves(history) {
		points := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			points[j] = plotter.XY{X: float64(history[j].Episode), Y: v}
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("savePNG: could not create line %v: %v",
				s.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return fmt.Errorf("savePNG: %v", err)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, filename); err != nil {
		return fmt.Errorf("savePNG: %v", err)
	}
	return nil
}

// RenderHTML writes the learning curves of history to w as an HTML
// page holding one line chart
func RenderHTML(history []tracker.EpisodeMetrics, w io.Writer) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Learning Curve",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Episode"}),
	)

	episodes := make([]string, len(history))
	for i, m := range history {
		episodes[i] = strconv.Itoa(m.Episode)
	}
	line.SetXAxis(episodes)

	for _, s := range Curves(history) {
		items := make([]opts.LineData, 0, len(s.Values))
		for _, v := range s.Values {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(s.Name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("renderHTML: %v", err)
	}
	return nil
}

// SaveHTML saves the learning curves of history to filename as an HTML
// page, creating the parent directory if needed
func SaveHTML(history []tracker.EpisodeMetrics, filename string) error {
	if len(history) == 0 {
		return fmt.Errorf("saveHTML: no episodes to plot")
	}

	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return fmt.Errorf("saveHTML: %v", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("saveHTML: %v", err)
	}
	defer f.Close()

	return RenderHTML(history, f)
}

// Save saves both the PNG and HTML learning charts of history into dir
func Save(history []tracker.EpisodeMetrics, dir string) error {
	if err := SavePNG(history, filepath.Join(dir, PNGFile)); err != nil {
		return err
	}
	return SaveHTML(history, filepath.Join(dir, HTMLFile))
}
