package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

func rowSeries(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

// PlotSummary draws the row-wise mean, min and max of the raw and the
// transformed data against the row index and saves the chart to filename.
// The image format follows the file extension (png, svg, pdf, ...).
func PlotSummary(before, after Summary, title, filename string) error {
	if len(before.RowMean) != len(after.RowMean) {
		return errors.NewDimensionError("PlotSummary", len(before.RowMean), len(after.RowMean), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "row"
	p.Y.Label.Text = "value"

	err := plotutil.AddLines(p,
		"raw mean", rowSeries(before.RowMean),
		"raw min", rowSeries(before.RowMin),
		"raw max", rowSeries(before.RowMax),
		"transformed mean", rowSeries(after.RowMean),
		"transformed min", rowSeries(after.RowMin),
		"transformed max", rowSeries(after.RowMax),
	)
	if err != nil {
		return errors.Wrap(err, "PlotSummary: add lines")
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrapf(err, "PlotSummary: save %s", filename)
	}
	return nil
}
