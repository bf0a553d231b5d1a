package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/annotation.report/internal/evaluation"
	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/metrics"
)

// WriteAccuracyChart draws per-file token accuracy as a PNG bar chart.
func WriteAccuracyChart(fsys fsutil.FileSystem, path string, files []evaluation.FileResult) error {
	if len(files) == 0 {
		return fmt.Errorf("accuracy chart: no files to plot")
	}

	values := make(plotter.Values, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		values[i] = f.Token.TokenAccuracy
		names[i] = f.File
	}

	p := plot.New()
	p.Title.Text = "Token Accuracy per File"
	p.Y.Label.Text = "Token accuracy"
	p.Y.Min = 0
	p.Y.Max = 1
	p.X.Tick.Label.Rotation = math.Pi / 4

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("accuracy chart: %w", err)
	}
	bars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(math.Max(8, float64(len(files))*0.4)) * vg.Inch
	wt, err := p.WriterTo(width, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("accuracy chart: %w", err)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteConfusionChart renders the confusion pairs as an interactive HTML
// bar chart, most frequent first.
func WriteConfusionChart(fsys fsutil.FileSystem, path string, pairs []metrics.ConfusionPair) error {
	if len(pairs) == 0 {
		return fmt.Errorf("confusion chart: no confusion patterns")
	}

	// Horizontal bars list the y axis bottom-up, so reverse to keep the
	// largest pair on top.
	x := make([]string, len(pairs))
	y := make([]opts.BarData, len(pairs))
	for i, c := range pairs {
		j := len(pairs) - 1 - i
		x[j] = c.String()
		y[j] = opts.BarData{Value: c.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "NER Confusion Patterns", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Top Confusion Patterns", Subtitle: "true → predicted"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithGridOpts(opts.Grid{Left: "25%"}),
	)
	bar.SetXAxis(x).
		AddSeries("errors", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
		).
		XYReversal()

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := bar.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
