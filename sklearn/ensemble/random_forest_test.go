package ensemble

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

// makeRegressionData builds y = 3*x0 + x1 with a small deterministic wiggle.
func makeRegressionData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i % 17)
		x1 := float64((i * 7) % 11)
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, 3*x0+x1+0.1*float64(i%3))
	}
	return X, y
}

func TestRandomForestRegressor_Defaults(t *testing.T) {
	f := NewRandomForestRegressor()
	params := f.GetParams()

	if params["n_estimators"].(int) != 100 {
		t.Errorf("n_estimators = %v, want 100", params["n_estimators"])
	}
	if params["random_state"].(int64) != 42 {
		t.Errorf("random_state = %v, want 42", params["random_state"])
	}
	if !params["bootstrap"].(bool) {
		t.Error("bootstrap should default to true")
	}
}

func TestRandomForestRegressor_FitPredict(t *testing.T) {
	X, y := makeRegressionData(200)

	f := NewRandomForestRegressor(WithNEstimators(20))
	if err := f.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if len(f.Trees) != 20 {
		t.Fatalf("trees = %d, want 20", len(f.Trees))
	}

	score, err := f.Score(X, y)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score < 0.95 {
		t.Errorf("training R² = %v, want >= 0.95", score)
	}

	pred, err := f.PredictOne([]float64{5, 3})
	if err != nil {
		t.Fatalf("PredictOne: %v", err)
	}
	if math.Abs(pred-18) > 2 {
		t.Errorf("PredictOne(5,3) = %v, want about 18", pred)
	}
}

func TestRandomForestRegressor_PredictionIsTreeMean(t *testing.T) {
	X, y := makeRegressionData(50)

	f := NewRandomForestRegressor(WithNEstimators(5))
	if err := f.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	row := []float64{4, 2}
	var sum float64
	for _, tr := range f.Trees {
		sum += tr.PredictRow(row)
	}
	got, err := f.PredictOne(row)
	if err != nil {
		t.Fatal(err)
	}
	if want := sum / 5; math.Abs(got-want) > 1e-12 {
		t.Errorf("PredictOne = %v, want mean of trees %v", got, want)
	}
}

func TestRandomForestRegressor_LargeBatchMatchesRows(t *testing.T) {
	X, y := makeRegressionData(100)

	f := NewRandomForestRegressor(WithNEstimators(4))
	if err := f.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	n := predictParallelThreshold + 250
	batch, _ := makeRegressionData(n)
	pred, err := f.Predict(batch)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 0; i < n; i++ {
		want, err := f.PredictOne(mat.Row(nil, i, batch))
		if err != nil {
			t.Fatal(err)
		}
		if got := pred.At(i, 0); got != want {
			t.Fatalf("row %d: batch = %v, single = %v", i, got, want)
		}
	}
}

func TestRandomForestRegressor_Deterministic(t *testing.T) {
	X, y := makeRegressionData(120)
	query := mat.NewDense(3, 2, []float64{0, 0, 8, 5, 16, 10})

	tests := []struct {
		name  string
		jobsA int
		jobsB int
	}{
		{"same worker count", 0, 0},
		{"sequential vs parallel", 1, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewRandomForestRegressor(WithNEstimators(30), WithNJobs(tt.jobsA))
			b := NewRandomForestRegressor(WithNEstimators(30), WithNJobs(tt.jobsB))
			if err := a.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			if err := b.Fit(X, y); err != nil {
				t.Fatal(err)
			}

			pa, _ := a.Predict(query)
			pb, _ := b.Predict(query)
			if !mat.EqualApprox(pa, pb, 1e-12) {
				t.Errorf("predictions differ:\n%v\n%v", mat.Formatted(pa), mat.Formatted(pb))
			}
		})
	}
}

func TestRandomForestRegressor_SeedChangesModel(t *testing.T) {
	X, y := makeRegressionData(120)
	query := mat.NewDense(1, 2, []float64{7.5, 4.5})

	a := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(1))
	b := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(2))
	_ = a.Fit(X, y)
	_ = b.Fit(X, y)

	pa, _ := a.Predict(query)
	pb, _ := b.Predict(query)
	if pa.At(0, 0) == pb.At(0, 0) {
		t.Error("different seeds should give different bootstrap samples")
	}
}

func TestRandomForestRegressor_FeatureImportances(t *testing.T) {
	X, y := makeRegressionData(200)

	f := NewRandomForestRegressor(WithNEstimators(10))
	if _, err := f.FeatureImportances(); err == nil {
		t.Error("expected NotFittedError before Fit")
	}
	if err := f.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	imp, err := f.FeatureImportances()
	if err != nil {
		t.Fatal(err)
	}
	if imp[0] <= imp[1] {
		t.Errorf("x0 has the larger coefficient and should dominate: %v", imp)
	}
	if math.Abs(imp[0]+imp[1]-1) > 1e-9 {
		t.Errorf("importances should sum to 1: %v", imp)
	}
}

func TestRandomForestRegressor_SaveLoad(t *testing.T) {
	X, y := makeRegressionData(80)
	path := filepath.Join(t.TempDir(), "food_prediction_model.gob")

	f := NewRandomForestRegressor(WithNEstimators(8))
	if err := f.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewRandomForestRegressor()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NEstimators != 8 || len(loaded.Trees) != 8 {
		t.Errorf("loaded forest has %d/%d trees", loaded.NEstimators, len(loaded.Trees))
	}

	want, _ := f.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(want, got) {
		t.Error("loaded forest predicts differently")
	}
}

func TestRandomForestRegressor_Errors(t *testing.T) {
	X, y := makeRegressionData(10)

	tests := []struct {
		name string
		run  func() error
		want interface{}
	}{
		{
			name: "predict before fit",
			run: func() error {
				_, err := NewRandomForestRegressor().Predict(X)
				return err
			},
			want: new(*errors.NotFittedError),
		},
		{
			name: "row mismatch",
			run: func() error {
				return NewRandomForestRegressor().Fit(X, mat.NewDense(9, 1, nil))
			},
			want: new(*errors.DimensionError),
		},
		{
			name: "empty data",
			run: func() error {
				return NewRandomForestRegressor().Fit(&mat.Dense{}, &mat.Dense{})
			},
			want: new(*errors.ModelError),
		},
		{
			name: "zero trees",
			run: func() error {
				return NewRandomForestRegressor(WithNEstimators(0)).Fit(X, y)
			},
			want: new(*errors.ValidationError),
		},
		{
			name: "wrong feature count",
			run: func() error {
				f := NewRandomForestRegressor(WithNEstimators(2))
				if err := f.Fit(X, y); err != nil {
					return err
				}
				_, err := f.PredictOne([]float64{1, 2, 3})
				return err
			},
			want: new(*errors.DimensionError),
		},
		{
			name: "infinite target",
			run: func() error {
				bad := mat.DenseCopyOf(y)
				bad.Set(3, 0, math.Inf(1))
				return NewRandomForestRegressor().Fit(X, bad)
			},
			want: new(*errors.NumericalInstabilityError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.As(err, tt.want) {
				t.Errorf("error %v has unexpected type", err)
			}
		})
	}
}

func TestRandomForestRegressor_LogsFit(t *testing.T) {
	testLogger := log.NewTestLogger(log.LevelDebug)
	log.SetProvider(testLogger)
	t.Cleanup(func() {
		p, _ := log.NewProvider(log.DefaultConfig())
		log.SetProvider(p)
	})

	X, y := makeRegressionData(20)
	if err := NewRandomForestRegressor(WithNEstimators(3)).Fit(X, y); err != nil {
		t.Fatal(err)
	}

	if !testLogger.ContainsMessage("Fitting random forest") {
		t.Error("missing fit start log")
	}
	if !testLogger.ContainsField(log.NEstimatorsKey, 3.0) {
		t.Error("missing n_estimators field")
	}
}
