// Package report renders training charts and the Prometheus textfile that
// summarise a training run.
package report

import (
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// Chart file names written by WriteCharts.
const (
	ImportanceChartFile = "feature_importance.png"
	PredictionChartFile = "predicted_vs_actual.png"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// WriteCharts writes both training charts into dir and returns their paths.
func WriteCharts(dir string, featureNames []string, importances, actual, predicted []float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create chart directory %s", dir)
	}

	importancePath := filepath.Join(dir, ImportanceChartFile)
	if err := FeatureImportanceChart(importancePath, featureNames, importances); err != nil {
		return nil, err
	}
	predictionPath := filepath.Join(dir, PredictionChartFile)
	if err := PredictionChart(predictionPath, actual, predicted); err != nil {
		return nil, err
	}
	return []string{importancePath, predictionPath}, nil
}

// FeatureImportanceChart draws one bar per feature. The image format
// follows the file extension.
func FeatureImportanceChart(path string, names []string, importances []float64) error {
	if len(names) != len(importances) {
		return errors.NewDimensionError("FeatureImportanceChart", len(names), len(importances), 0)
	}
	if len(names) == 0 {
		return errors.NewValueError("FeatureImportanceChart", "no features")
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "mean impurity decrease"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(bars)
	p.NominalX(names...)

	return save(p, path)
}

// PredictionChart scatters predicted against actual values with the
// identity line for reference.
func PredictionChart(path string, actual, predicted []float64) error {
	if len(actual) != len(predicted) {
		return errors.NewDimensionError("PredictionChart", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return errors.NewValueError("PredictionChart", "no points")
	}

	pts := make(plotter.XYs, len(actual))
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual food prepared"
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter plot")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	lo := floats.Min(actual)
	hi := floats.Max(actual)
	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.XMin, identity.XMax = lo, hi
	identity.Color = color.RGBA{R: 200, A: 255}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(scatter, identity)
	p.Legend.Add("tree ensemble", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.Wrapf(err, "failed to save chart %s", path)
	}
	return nil
}
