package probe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
)

// Plot renders the trace as a PNG line chart of value against step.
func Plot(w io.Writer, title string, records []Record) error {
	if len(records) < 2 {
		return fmt.Errorf("plot needs at least 2 records, have %d", len(records))
	}
	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	lo, hi := float64(records[0].Value), float64(records[0].Value)
	for i, r := range records {
		xs[i], ys[i] = float64(r.Step), float64(r.Value)
		lo, hi = min(lo, ys[i]), max(hi, ys[i])
	}

	yAxis := chart.YAxis{
		Name:  "value",
		Style: chart.Style{FontSize: 10.0},
	}
	// go-chart refuses a zero-height range.
	if lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1024,
		Height: 512,
		XAxis: chart.XAxis{
			Name:  "step",
			Style: chart.Style{FontSize: 10.0},
		},
		YAxis: yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "probe",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2.0},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// PlotFile writes Plot output to path.
func PlotFile(path, title string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot: %w", err)
	}
	if err := Plot(f, title, records); err != nil {
		f.Close()
		return fmt.Errorf("render plot: %w", err)
	}
	return f.Close()
}
