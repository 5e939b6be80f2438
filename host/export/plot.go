package export

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"pillarpuller/protocol"
)

// Plot image dimensions
const (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 6 * vg.Inch
)

// WritePlot renders force and platform position against time as a PNG.
// The filtered force is drawn too when the samples carry it.
func WritePlot(w io.Writer, samples []protocol.Sample, title string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Values"
	p.Add(plotter.NewGrid())

	forces := make(plotter.XYs, len(samples))
	positions := make(plotter.XYs, len(samples))
	var filtered plotter.XYs
	for i, s := range samples {
		forces[i] = plotter.XY{X: s.Timestamp, Y: s.Force}
		positions[i] = plotter.XY{X: s.Timestamp, Y: s.PlatformDistance}
		if v, ok := s.FilteredForce.Get(); ok {
			filtered = append(filtered, plotter.XY{X: s.Timestamp, Y: v})
		}
	}

	lines := []interface{}{"Forces", forces, "Platform Position", positions}
	if len(filtered) > 0 {
		lines = append(lines, "Filtered Forces", filtered)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("failed to add plot lines: %w", err)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
