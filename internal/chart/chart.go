package chart

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/aclements/go-moremath/stats"
)

// Default image size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	seriesColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	meanColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Series is a metric measured over consecutive runs.
type Series struct {
	Title  string
	YLabel string
	Values []float64
	// Labels optionally names each run on the X axis.
	Labels []string
}

// Render draws s as a line chart with a dashed mean line and saves it to
// path. The image format follows the file extension (.png, .svg, .pdf).
func Render(s Series, path string) error {
	p, err := build(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// Write draws s in the given format ("png", "svg", ...) to w.
func Write(s Series, w io.Writer, format string) error {
	p, err := build(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("chart writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func build(s Series) (*plot.Plot, error) {
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("render %q: no values", s.Title)
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.Y.Label.Text = s.YLabel
	p.X.Label.Text = "Run"

	pts := make(plotter.XYs, len(s.Values))
	ticks := make([]plot.Tick, len(s.Values))
	for i, v := range s.Values {
		x := float64(i + 1)
		pts[i].X, pts[i].Y = x, v
		label := fmt.Sprintf("%d", i+1)
		if i < len(s.Labels) && s.Labels[i] != "" {
			label = s.Labels[i]
		}
		ticks[i] = plot.Tick{Value: x, Label: label}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}
	line.Color = seriesColor
	line.Width = vg.Points(2)
	points.Color = seriesColor

	mean := stats.Mean(s.Values)
	meanLine, err := plotter.NewLine(plotter.XYs{{X: 0.5, Y: mean}, {X: float64(len(s.Values)) + 0.5, Y: mean}})
	if err != nil {
		return nil, fmt.Errorf("build mean line: %w", err)
	}
	meanLine.Color = meanColor
	meanLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), line, points, meanLine)
	p.Legend.Add(s.YLabel, line, points)
	p.Legend.Add(fmt.Sprintf("mean %.2f", mean), meanLine)
	p.Legend.Top = true

	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Min = 0.5
	p.X.Max = float64(len(s.Values)) + 0.5
	return p, nil
}

