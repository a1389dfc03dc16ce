package forecast

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/dataset"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

// testConfig keeps every file of the run in a temporary directory.
func testConfig(t *testing.T, nEstimators int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.CSVPath = filepath.Join(dir, "dummy_food_data.csv")
	cfg.Data.Seed = 2024
	cfg.Artifacts.Dir = filepath.Join(dir, "artifacts")
	cfg.Model.NEstimators = nEstimators
	return cfg
}

func train(t *testing.T, cfg *config.Config) *TrainResult {
	t.Helper()
	res, err := NewTrainer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func loadPredictor(t *testing.T, cfg *config.Config) *Predictor {
	t.Helper()
	p, err := LoadPredictor(cfg.Artifacts)
	if err != nil {
		t.Fatalf("LoadPredictor: %v", err)
	}
	return p
}

func captureLogs(t *testing.T) *log.TestLogger {
	t.Helper()
	testLogger := log.NewTestLogger(log.LevelDebug)
	log.SetProvider(testLogger)
	t.Cleanup(func() {
		p, _ := log.NewProvider(log.DefaultConfig())
		log.SetProvider(p)
	})
	return testLogger
}

func TestTrainerGeneratesMissingDataset(t *testing.T) {
	testLogger := captureLogs(t)
	cfg := testConfig(t, 10)

	res := train(t, cfg)

	if !res.Generated {
		t.Error("dataset should have been generated")
	}
	if res.Samples != 366 {
		t.Errorf("samples = %d, want 366 for 2024", res.Samples)
	}
	records, err := dataset.LoadCSV(cfg.Data.CSVPath)
	if err != nil {
		t.Fatalf("generated dataset not readable: %v", err)
	}
	if len(records) != 366 {
		t.Errorf("generated %d rows", len(records))
	}
	for _, p := range []string{res.EncoderPath, res.ModelPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s: %v", p, err)
		}
	}
	if filepath.Base(res.EncoderPath) != "event_type_encoder.json" || filepath.Base(res.ModelPath) != "food_prediction_model.gob" {
		t.Errorf("artifact names = %s, %s", res.EncoderPath, res.ModelPath)
	}
	if !testLogger.ContainsMessage("Generating new dummy data") {
		t.Error("missing generation log")
	}
	if !testLogger.ContainsField(log.ModelIDKey, res.ModelID) {
		t.Error("model ID not logged")
	}
	if res.Metrics.R2 <= 0.5 {
		t.Errorf("training R² = %v, expected a useful fit", res.Metrics.R2)
	}
}

func TestTrainerUsesExistingDataset(t *testing.T) {
	cfg := testConfig(t, 5)
	records := dataset.Generate(cfg.StartTime(), cfg.StartTime().AddDate(0, 0, 29), dataset.NewRand(1))
	if err := dataset.SaveCSV(cfg.Data.CSVPath, records); err != nil {
		t.Fatal(err)
	}

	res := train(t, cfg)
	if res.Generated {
		t.Error("existing dataset should not be regenerated")
	}
	if res.Samples != 30 {
		t.Errorf("samples = %d, want 30", res.Samples)
	}
}

func TestTrainerMalformedDataset(t *testing.T) {
	cfg := testConfig(t, 5)
	content := strings.Join(dataset.Columns, ",") + "\n" +
		"2024-01-01,Wedding,150,160.5,140.25,20.25\n" +
		"2024-01-02,Wedding,many,160.5,140.25,20.25\n"
	if err := os.WriteFile(cfg.Data.CSVPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewTrainer(cfg).Run(context.Background())
	var de *errors.DataError
	if !errors.As(err, &de) || de.Line != 3 {
		t.Fatalf("expected DataError on line 3, got %v", err)
	}
	if _, err := os.Stat(cfg.Artifacts.ModelOutput()); !os.IsNotExist(err) {
		t.Error("no artifact should be written when training fails")
	}
}

func TestTrainerCancelled(t *testing.T) {
	cfg := testConfig(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewTrainer(cfg).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTrainerReports(t *testing.T) {
	cfg := testConfig(t, 5)
	dir := filepath.Dir(cfg.Data.CSVPath)
	cfg.Report.ChartDir = filepath.Join(dir, "charts")
	cfg.Metrics.TextfilePath = filepath.Join(dir, "metrics", "foodcast.prom")
	cfg.Data.XLSXPath = filepath.Join(dir, "dummy_food_data.xlsx")

	res := train(t, cfg)

	if len(res.ChartPaths) != 2 {
		t.Errorf("chart paths = %v", res.ChartPaths)
	}
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("textfile: %v", err)
	}
	if !strings.Contains(string(data), res.ModelID) {
		t.Error("textfile should carry the model ID")
	}
	if _, err := os.Stat(cfg.Data.XLSXPath); err != nil {
		t.Errorf("spreadsheet export missing: %v", err)
	}
}

func TestTrainPredictRoundTrip(t *testing.T) {
	cfg := testConfig(t, 10)
	train(t, cfg)
	p := loadPredictor(t, cfg)

	records, err := dataset.LoadCSV(cfg.Data.CSVPath)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(records); i += 7 {
		r := records[i]
		v, err := p.Predict(Request{
			Date:      r.Date.Format(dataset.DateLayout),
			EventType: r.EventType,
			Attendees: r.Attendees,
		})
		if err != nil {
			t.Fatalf("row %d (%s): %v", i, r.EventType, err)
		}
		if v < 0 {
			t.Errorf("row %d: negative prediction %v", i, v)
		}
	}
}

func TestPredictWeddingScenario(t *testing.T) {
	cfg := testConfig(t, 100)
	train(t, cfg)
	p := loadPredictor(t, cfg)

	req, err := ParseRequest([]byte(`{"date":"2024-06-15","event_type":"Wedding","attendees":150}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	v, err := p.Predict(req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v < 0 {
		t.Errorf("prediction %v is negative", v)
	}
	if dataset.Round(v) != v {
		t.Errorf("prediction %v not rounded to 2 decimals", v)
	}
	if out := FormatPrediction(v); !regexp.MustCompile(`^\d+\.\d{2}$`).MatchString(out) {
		t.Errorf("formatted prediction %q", out)
	}
}

func TestPredictUnknownEventType(t *testing.T) {
	cfg := testConfig(t, 3)
	train(t, cfg)
	p := loadPredictor(t, cfg)

	_, err := p.Predict(Request{Date: "2024-06-15", EventType: "Zoo Party", Attendees: 40})
	var uc *errors.UnknownCategoryError
	if !errors.As(err, &uc) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unknown event type: Zoo Party") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTrainingIsDeterministic(t *testing.T) {
	a := testConfig(t, 20)
	train(t, a)

	// second run reads the same CSV and writes its own artifacts
	b := testConfig(t, 20)
	b.Data.CSVPath = a.Data.CSVPath
	train(t, b)

	pa, pb := loadPredictor(t, a), loadPredictor(t, b)
	if pa.ModelID() == pb.ModelID() {
		t.Error("each run should get its own model ID")
	}
	for _, req := range []Request{
		{Date: "2024-06-15", EventType: "Wedding", Attendees: 150},
		{Date: "2024-02-03", EventType: "Festival", Attendees: 800},
		{Date: "2024-11-20", EventType: "Small Gathering", Attendees: 12},
	} {
		va, err := pa.Predict(req)
		if err != nil {
			t.Fatal(err)
		}
		vb, err := pb.Predict(req)
		if err != nil {
			t.Fatal(err)
		}
		if va != vb {
			t.Errorf("%+v: %v vs %v", req, va, vb)
		}
	}
}

func TestLoadPredictorMissingArtifacts(t *testing.T) {
	cfg := testConfig(t, 3)
	if _, err := LoadPredictor(cfg.Artifacts); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantParam string
	}{
		{name: "valid", raw: `{"date":"2024-06-15","event_type":"Wedding","attendees":150}`},
		{name: "malformed", raw: `{"date":"2024-06-15",`, wantErr: true},
		{name: "not an object", raw: `[1,2,3]`, wantErr: true},
		{name: "missing date", raw: `{"event_type":"Wedding","attendees":150}`, wantErr: true, wantParam: "date"},
		{name: "bad date", raw: `{"date":"June 15","event_type":"Wedding","attendees":150}`, wantErr: true, wantParam: "date"},
		{name: "missing event type", raw: `{"date":"2024-06-15","attendees":150}`, wantErr: true, wantParam: "event_type"},
		{name: "zero attendees", raw: `{"date":"2024-06-15","event_type":"Wedding","attendees":0}`, wantErr: true, wantParam: "attendees"},
		{name: "fractional attendees", raw: `{"date":"2024-06-15","event_type":"Wedding","attendees":1.5}`, wantErr: true},
		{name: "string attendees", raw: `{"date":"2024-06-15","event_type":"Wedding","attendees":"150"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if req.EventType != "Wedding" || req.Attendees != 150 || req.Date != "2024-06-15" {
					t.Errorf("req = %+v", req)
				}
				return
			}
			if tt.wantParam != "" {
				var ve *errors.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.ParamName != tt.wantParam {
					t.Errorf("param = %q, want %q", ve.ParamName, tt.wantParam)
				}
			}
		})
	}
}

func TestFormatPrediction(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{152.3, "152.30"},
		{0, "0.00"},
		{1234.567, "1234.57"},
	}
	for _, tt := range tests {
		if got := FormatPrediction(tt.in); got != tt.want {
			t.Errorf("FormatPrediction(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
