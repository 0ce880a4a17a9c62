package monitor

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/smartneedle/needletrack/internal/needle/trackdb"
)

// PlotTrajectory writes a PNG charting the smoothed tip coordinates per axis
// over cycles. Cycles that did not update the tracked position are skipped
// so the plot shows the actual tip path.
func PlotTrajectory(cycles []*trackdb.CycleRecord, outPath string) error {
	p := plot.New()
	p.Title.Text = "Tracked Tip Trajectory (RAS)"
	p.X.Label.Text = "Cycle"
	p.Y.Label.Text = "Position (mm)"

	rPts := make(plotter.XYs, 0, len(cycles))
	aPts := make(plotter.XYs, 0, len(cycles))
	sPts := make(plotter.XYs, 0, len(cycles))
	for _, c := range cycles {
		if !c.Updated {
			continue
		}
		x := float64(c.CycleNumber)
		rPts = append(rPts, plotter.XY{X: x, Y: c.SmoothedRAS[0]})
		aPts = append(aPts, plotter.XY{X: x, Y: c.SmoothedRAS[1]})
		sPts = append(sPts, plotter.XY{X: x, Y: c.SmoothedRAS[2]})
	}
	if len(rPts) == 0 {
		return fmt.Errorf("no updated cycles to plot")
	}

	for i, series := range []struct {
		name string
		pts  plotter.XYs
	}{
		{"R", rPts}, {"A", aPts}, {"S", sPts},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return fmt.Errorf("build %s series: %w", series.name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}
