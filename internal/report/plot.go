package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
)

// RenderEstimatePlot saves a PNG comparing raw GPS measurements with the
// filter's position estimate over a run. When truth is non-nil it is
// drawn as a reference line; it must then match the record count.
func RenderEstimatePlot(path string, records []fusion.StepRecord, truth []float64) error {
	if len(records) == 0 {
		return fmt.Errorf("no filter records to plot")
	}
	if truth != nil && len(truth) != len(records) {
		return fmt.Errorf("truth series length %d does not match %d records", len(truth), len(records))
	}

	p := plot.New()
	p.Title.Text = "Position Estimate"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Position (m)"

	gpsPts := make(plotter.XYs, len(records))
	estPts := make(plotter.XYs, len(records))
	for i, rec := range records {
		gpsPts[i] = plotter.XY{X: float64(rec.Step), Y: rec.GPS}
		estPts[i] = plotter.XY{X: float64(rec.Step), Y: rec.Pos}
	}

	// GPS measurements are noisy samples, so draw them as points rather
	// than connecting them.
	gpsScatter, err := plotter.NewScatter(gpsPts)
	if err != nil {
		return err
	}
	gpsScatter.GlyphStyle.Color = color.RGBA{R: 140, G: 140, B: 140, A: 255}
	gpsScatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(gpsScatter)
	p.Legend.Add("gps", gpsScatter)

	estLine, err := plotter.NewLine(estPts)
	if err != nil {
		return err
	}
	estLine.Color = color.RGBA{R: 0, G: 110, B: 220, A: 255}
	estLine.Width = vg.Points(2)
	p.Add(estLine)
	p.Legend.Add("estimate", estLine)

	if truth != nil {
		truthPts := make(plotter.XYs, len(truth))
		for i, v := range truth {
			truthPts[i] = plotter.XY{X: float64(records[i].Step), Y: v}
		}
		truthLine, err := plotter.NewLine(truthPts)
		if err != nil {
			return err
		}
		truthLine.Color = color.RGBA{R: 0, G: 160, B: 60, A: 255}
		truthLine.Width = vg.Points(1)
		truthLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(truthLine)
		p.Legend.Add("truth", truthLine)
	}

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// RenderVelocityPlot saves a PNG of the filter's velocity estimate over
// a run.
func RenderVelocityPlot(path string, records []fusion.StepRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no filter records to plot")
	}

	p := plot.New()
	p.Title.Text = "Velocity Estimate"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Velocity (m/s)"

	velPts := make(plotter.XYs, len(records))
	for i, rec := range records {
		velPts[i] = plotter.XY{X: float64(rec.Step), Y: rec.Vel}
	}

	velLine, err := plotter.NewLine(velPts)
	if err != nil {
		return err
	}
	velLine.Color = color.RGBA{R: 0, G: 110, B: 220, A: 255}
	velLine.Width = vg.Points(2)
	p.Add(velLine)
	p.Legend.Add("velocity", velLine)

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
