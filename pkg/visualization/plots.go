package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"astrowaves/internal/models"
)

// PlotShifts saves a PNG of the per-frame row and column shifts
func PlotShifts(shifts []models.Shift, filename string) error {
	if len(shifts) == 0 {
		return fmt.Errorf("no shifts to plot")
	}

	rows := make(plotter.XYs, len(shifts))
	cols := make(plotter.XYs, len(shifts))
	for i, s := range shifts {
		rows[i] = plotter.XY{X: float64(s.Frame), Y: float64(s.DRow)}
		cols[i] = plotter.XY{X: float64(s.Frame), Y: float64(s.DCol)}
	}

	p := plot.New()
	p.Title.Text = "Drift correction shifts"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Shift (px)"
	p.Add(plotter.NewGrid())

	rowLine, err := plotter.NewLine(rows)
	if err != nil {
		return fmt.Errorf("failed to create row shift line: %w", err)
	}
	rowLine.Color = color.RGBA{R: 200, A: 255}
	rowLine.Width = vg.Points(1)

	colLine, err := plotter.NewLine(cols)
	if err != nil {
		return fmt.Errorf("failed to create column shift line: %w", err)
	}
	colLine.Color = color.RGBA{B: 200, A: 255}
	colLine.Width = vg.Points(1)

	p.Add(rowLine, colLine)
	p.Legend.Add("row", rowLine)
	p.Legend.Add("column", colLine)

	return save(p, filename)
}

// PlotLags saves a PNG of the last histogram segment lag of each frame
func PlotLags(lags []int, filename string) error {
	if len(lags) == 0 {
		return fmt.Errorf("no lags to plot")
	}

	pts := make(plotter.XYs, len(lags))
	for i, l := range lags {
		pts[i] = plotter.XY{X: float64(i), Y: float64(l)}
	}

	p := plot.New()
	p.Title.Text = "Histogram alignment lags"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Lag (bins)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create lag line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	return save(p, filename)
}

func save(p *plot.Plot, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filename, err)
	}
	return nil
}
