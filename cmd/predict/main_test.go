package main

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/forecast"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// setup trains a small model in a temporary working directory.
func setup(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.ConfigPathEnvVar, "")
	t.Setenv("FOODCAST_ARTIFACTS__DIR", dir)
	t.Setenv("FOODCAST_MODEL__N_ESTIMATORS", "10")
	t.Setenv("FOODCAST_DATA__SEED", "7")
	t.Setenv("FOODCAST_LOG__LEVEL", "error")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := forecast.NewTrainer(cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRunPrintsPrediction(t *testing.T) {
	setup(t)

	var out bytes.Buffer
	err := run([]string{`{"date":"2024-06-15","event_type":"Wedding","attendees":150}`}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !regexp.MustCompile(`^\d+\.\d{2}\n$`).MatchString(out.String()) {
		t.Errorf("stdout = %q, want a single number with two decimals", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	setup(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"no argument", nil, "usage"},
		{"two arguments", []string{"{}", "{}"}, "usage"},
		{"malformed json", []string{`{"date":`}, "invalid request JSON"},
		{"unknown event type", []string{`{"date":"2024-06-15","event_type":"Zoo Party","attendees":40}`}, "Unknown event type: Zoo Party"},
		{"missing attendees", []string{`{"date":"2024-06-15","event_type":"Wedding"}`}, "attendees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
			if out.Len() != 0 {
				t.Errorf("nothing should be printed on stdout, got %q", out.String())
			}
		})
	}
}

func TestRunMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.ConfigPathEnvVar, "")
	t.Setenv("FOODCAST_ARTIFACTS__DIR", dir)

	err := run([]string{`{"date":"2024-06-15","event_type":"Wedding","attendees":150}`}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error without artifacts")
	}
	var uc *errors.UnknownCategoryError
	if errors.As(err, &uc) {
		t.Error("missing artifacts should not look like an unknown category")
	}
}
