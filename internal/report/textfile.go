package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// TrainingMetrics is the summary of one training run exported for the
// node_exporter textfile collector.
type TrainingMetrics struct {
	ModelID      string
	Samples      int
	NEstimators  int
	R2           float64
	MAE          float64
	RMSE         float64
	Duration     time.Duration
	FinishedAt   time.Time
	FeatureNames []string
	Importances  []float64
}

// WriteTextfile writes m in the Prometheus text exposition format. The
// file is replaced atomically.
func WriteTextfile(path string, m TrainingMetrics) error {
	if len(m.FeatureNames) != len(m.Importances) {
		return errors.NewDimensionError("WriteTextfile", len(m.FeatureNames), len(m.Importances), 0)
	}

	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"model_id": m.ModelID}

	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "foodcast",
			Subsystem:   "training",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(v)
		reg.MustRegister(g)
	}

	gauge("samples", "Number of rows the model was trained on.", float64(m.Samples))
	gauge("trees", "Number of trees in the forest.", float64(m.NEstimators))
	gauge("r2_score", "Coefficient of determination on the training set.", m.R2)
	gauge("mae", "Mean absolute error on the training set.", m.MAE)
	gauge("rmse", "Root mean squared error on the training set.", m.RMSE)
	gauge("duration_seconds", "Wall time of the training run.", m.Duration.Seconds())
	gauge("last_success_timestamp_seconds", "Unix time the last training run finished.", float64(m.FinishedAt.Unix()))

	importance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   "foodcast",
		Subsystem:   "training",
		Name:        "feature_importance",
		Help:        "Mean impurity-based importance per feature.",
		ConstLabels: labels,
	}, []string{"feature"})
	for i, name := range m.FeatureNames {
		importance.WithLabelValues(name).Set(m.Importances[i])
	}
	reg.MustRegister(importance)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "failed to write metrics textfile %s", path)
	}
	return nil
}
