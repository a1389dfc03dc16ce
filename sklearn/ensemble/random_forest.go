// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foodcast/core/model"
	"github.com/YuminosukeSato/foodcast/core/parallel"
	"github.com/YuminosukeSato/foodcast/metrics"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
	"github.com/YuminosukeSato/foodcast/sklearn/tree"
)

const (
	// DefaultNEstimators is the number of trees when none is configured.
	DefaultNEstimators = 100
	// DefaultRandomState is the seed used when none is configured.
	DefaultRandomState = 42
)

// RandomForestRegressor averages the predictions of decision trees, each
// fitted on a bootstrap sample of the training data.
type RandomForestRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	NJobs           int // <= 0 uses every CPU core

	// Fitted state
	Trees     []*tree.DecisionTreeRegressor
	NFeatures int
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithMaxDepth limits the depth of every tree. <= 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *RandomForestRegressor) { f.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features each split considers. <= 0 means all.
func WithMaxFeatures(n int) Option {
	return func(f *RandomForestRegressor) { f.MaxFeatures = n }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option {
	return func(f *RandomForestRegressor) { f.Bootstrap = b }
}

// WithRandomState sets the forest seed.
func WithRandomState(seed int64) Option {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithNJobs sets the number of goroutines used while fitting.
func WithNJobs(n int) Option {
	return func(f *RandomForestRegressor) { f.NJobs = n }
}

// NewRandomForestRegressor creates a forest with 100 trees, seed 42,
// bootstrap sampling and every feature considered at each split.
//
// Example:
//
//	forest := ensemble.NewRandomForestRegressor(ensemble.WithMaxDepth(12))
//	if err := forest.Fit(X, y); err != nil {
//	    return err
//	}
//	pred, err := forest.Predict(XTest)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     DefaultNEstimators,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     DefaultRandomState,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit trains every tree. Per-tree seeds are drawn from RandomState before
// any goroutine starts and each tree writes only its own slot, so the result
// does not depend on scheduling.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if f.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", f.NEstimators)
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("RandomForestRegressor.Fit", X, rows, cols); err != nil {
		return err
	}

	yVec, err := metrics.ColumnToVec(y)
	if err != nil {
		return err
	}
	target := make([]float64, rows)
	for i := range target {
		target[i] = yVec.AtVec(i)
	}
	if err := errors.CheckNumericalStability("RandomForestRegressor.Fit", target, 0); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.random_forest")
	logger.Debug("Fitting random forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.NEstimatorsKey, f.NEstimators,
		log.RandomSeedKey, f.RandomState,
	)
	start := time.Now()

	seeds := make([]int64, f.NEstimators)
	rng := newRand(f.RandomState)
	for i := range seeds {
		seeds[i] = rng.Int64()
	}

	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	errs := make([]error, f.NEstimators)
	parallel.ParallelizeN(f.NEstimators, f.NJobs, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			trees[i], errs[i] = f.fitTree(X, target, seeds[i])
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "tree %d", i)
		}
	}

	f.Trees = trees
	f.NFeatures = cols
	f.SetFitted()

	logger.Debug("Random forest fitted",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (f *RandomForestRegressor) fitTree(X mat.Matrix, y []float64, seed int64) (*tree.DecisionTreeRegressor, error) {
	t := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(f.MaxDepth),
		tree.WithMinSamplesSplit(f.MinSamplesSplit),
		tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
		tree.WithMaxFeatures(f.MaxFeatures),
		tree.WithRandomState(seed),
	)

	n := len(y)
	samples := make([]int, n)
	if f.Bootstrap {
		rng := newRand(seed)
		for i := range samples {
			samples[i] = rng.IntN(n)
		}
	} else {
		for i := range samples {
			samples[i] = i
		}
	}

	if err := t.FitSamples(X, y, samples); err != nil {
		return nil, err
	}
	return t, nil
}

func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// Predict returns the mean tree prediction for every row as an n×1 matrix.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != f.NFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", f.NFeatures, cols, 1)
	}
	if err := errors.CheckMatrix("RandomForestRegressor.Predict", X, rows, cols); err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(lo, hi int) {
		row := make([]float64, cols)
		for i := lo; i < hi; i++ {
			mat.Row(row, i, X)
			out[i] = f.predictRow(row)
		}
	})
	return mat.NewDense(rows, 1, out), nil
}

// Batches at or below this many rows are predicted sequentially.
const predictParallelThreshold = 1000

// PredictOne predicts a single feature vector.
func (f *RandomForestRegressor) PredictOne(features []float64) (float64, error) {
	pred, err := f.Predict(mat.NewDense(1, len(features), features))
	if err != nil {
		return 0, err
	}
	return pred.At(0, 0), nil
}

func (f *RandomForestRegressor) predictRow(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.PredictRow(row)
	}
	return sum / float64(len(f.Trees))
}

// Score returns the coefficient of determination R² of the prediction.
func (f *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	yVec, err := metrics.ColumnToVec(y)
	if err != nil {
		return 0, err
	}
	pVec, err := metrics.ColumnToVec(pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yVec, pVec)
}

// FeatureImportances returns the mean impurity-based importance over all trees.
func (f *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	out := make([]float64, f.NFeatures)
	for _, t := range f.Trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Trees))
	}
	return out, nil
}

// GetParams returns the hyperparameters.
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
		"n_jobs":            f.NJobs,
	}
}

// Save writes the fitted forest to filename in gob format.
func (f *RandomForestRegressor) Save(filename string) error {
	if !f.IsFitted() {
		return errors.NewNotFittedError("RandomForestRegressor", "Save")
	}
	return model.SaveModel(f, filename)
}

// Load reads a forest written by Save.
func (f *RandomForestRegressor) Load(filename string) error {
	if err := model.LoadModel(f, filename); err != nil {
		return err
	}
	if !f.IsFitted() || len(f.Trees) == 0 {
		return errors.NewModelError("RandomForestRegressor.Load", "artifact holds no fitted trees", nil)
	}
	return nil
}

var (
	_ model.Regressor   = (*RandomForestRegressor)(nil)
	_ model.Persistable = (*RandomForestRegressor)(nil)
)
