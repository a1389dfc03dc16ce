package forecast

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/dataset"
	"github.com/YuminosukeSato/foodcast/internal/report"
	"github.com/YuminosukeSato/foodcast/metrics"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
	"github.com/YuminosukeSato/foodcast/preprocessing"
	"github.com/YuminosukeSato/foodcast/sklearn/ensemble"
)

// TrainResult describes a completed training run.
type TrainResult struct {
	ModelID     string
	Samples     int
	Generated   bool // the dataset was missing and had to be generated
	Metrics     metrics.Regression
	Importances []float64
	EncoderPath string
	ModelPath   string
	ChartPaths  []string
	Duration    time.Duration
}

// Trainer fits the encoder and forest on the whole dataset and writes both
// artifacts. A run either writes everything or returns an error.
type Trainer struct {
	cfg    *config.Config
	logger log.Logger
	now    func() time.Time
}

// NewTrainer creates a Trainer for cfg.
func NewTrainer(cfg *config.Config) *Trainer {
	return &Trainer{
		cfg:    cfg,
		logger: log.GetLoggerWithName("forecast.trainer"),
		now:    time.Now,
	}
}

// Run executes the training pipeline.
func (t *Trainer) Run(ctx context.Context) (*TrainResult, error) {
	start := t.now()
	res := &TrainResult{}

	records, generated, err := t.loadOrGenerate()
	if err != nil {
		return nil, err
	}
	res.Generated = generated
	res.Samples = len(records)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoder := preprocessing.NewLabelEncoder()
	if err := encoder.Fit(dataset.EventTypes(records)); err != nil {
		return nil, err
	}
	X, y, err := dataset.BuildFeatures(records, encoder)
	if err != nil {
		return nil, err
	}

	forest := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(t.cfg.Model.NEstimators),
		ensemble.WithRandomState(t.cfg.Model.RandomState),
		ensemble.WithMaxDepth(t.cfg.Model.MaxDepth),
		ensemble.WithMinSamplesLeaf(t.cfg.Model.MinSamplesLeaf),
		ensemble.WithNJobs(t.cfg.Model.NJobs),
	)
	t.logger.Info("Training model",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.ModelNameKey, "RandomForestRegressor",
		log.SamplesKey, res.Samples,
		log.FeaturesKey, dataset.NumFeatures,
		log.NEstimatorsKey, t.cfg.Model.NEstimators,
		log.RandomSeedKey, t.cfg.Model.RandomState,
	)
	if err := forest.Fit(X, y); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predicted, err := forest.Predict(X)
	if err != nil {
		return nil, err
	}
	predVec, err := metrics.ColumnToVec(predicted)
	if err != nil {
		return nil, err
	}
	if res.Metrics, err = metrics.Evaluate(y, predVec); err != nil {
		return nil, err
	}
	if res.Importances, err = forest.FeatureImportances(); err != nil {
		return nil, err
	}

	res.ModelID = uuid.New().String()
	artifact := &ModelArtifact{
		ModelID:      res.ModelID,
		TrainedAt:    t.now().UTC(),
		Samples:      res.Samples,
		FeatureNames: dataset.FeatureNames,
		Metrics:      res.Metrics,
		Forest:       forest,
	}

	res.EncoderPath = t.cfg.Artifacts.EncoderOutput()
	res.ModelPath = t.cfg.Artifacts.ModelOutput()
	if err := encoder.Save(res.EncoderPath); err != nil {
		return nil, errors.Wrap(err, "failed to save encoder")
	}
	if err := artifact.Save(res.ModelPath); err != nil {
		return nil, errors.Wrap(err, "failed to save model")
	}

	importanceFields := make([]any, 0, 2*dataset.NumFeatures)
	for i, name := range dataset.FeatureNames {
		importanceFields = append(importanceFields, "importance."+name, res.Importances[i])
	}
	t.logger.Info("Model trained",
		append([]any{
			log.ModelIDKey, res.ModelID,
			log.R2ScoreKey, res.Metrics.R2,
			log.MAEKey, res.Metrics.MAE,
			log.RMSEKey, res.Metrics.RMSE,
		}, importanceFields...)...,
	)

	if dir := t.cfg.Report.ChartDir; dir != "" {
		paths, err := report.WriteCharts(dir, dataset.FeatureNames, res.Importances, vecSlice(y), vecSlice(predVec))
		if err != nil {
			return nil, err
		}
		res.ChartPaths = paths
		t.logger.Info("Charts written", log.PathKey, dir)
	}

	res.Duration = t.now().Sub(start)

	if path := t.cfg.Metrics.TextfilePath; path != "" {
		err := report.WriteTextfile(path, report.TrainingMetrics{
			ModelID:      res.ModelID,
			Samples:      res.Samples,
			NEstimators:  t.cfg.Model.NEstimators,
			R2:           res.Metrics.R2,
			MAE:          res.Metrics.MAE,
			RMSE:         res.Metrics.RMSE,
			Duration:     res.Duration,
			FinishedAt:   t.now(),
			FeatureNames: dataset.FeatureNames,
			Importances:  res.Importances,
		})
		if err != nil {
			return nil, err
		}
		t.logger.Info("Metrics textfile written", log.PathKey, path)
	}

	return res, nil
}

// loadOrGenerate reads the configured dataset. Only a missing file triggers
// generation; any other read error is returned.
func (t *Trainer) loadOrGenerate() ([]dataset.EventRecord, bool, error) {
	path := t.cfg.Data.CSVPath
	records, err := dataset.LoadRecords(path)
	if err == nil {
		t.logger.Info("Dataset loaded", log.PathKey, path, log.SamplesKey, len(records))
		return records, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	t.logger.Info("Generating new dummy data", log.PathKey, path)
	records, err = GenerateDataset(t.cfg)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func vecSlice(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
