// Package config loads foodcast settings from defaults, an optional YAML
// file and FOODCAST_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/YuminosukeSato/foodcast/internal/validation"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
)

const (
	// EnvPrefix is stripped from environment variable names. A double
	// underscore separates nesting levels: FOODCAST_DATA__CSV_PATH -> data.csv_path.
	EnvPrefix = "FOODCAST_"

	// ConfigPathEnvVar names a YAML file to load instead of DefaultConfigFile.
	ConfigPathEnvVar = "FOODCAST_CONFIG"

	// DefaultConfigFile is read from the working directory when present.
	DefaultConfigFile = "foodcast.yaml"

	// DateLayout is the calendar date format used everywhere.
	DateLayout = "2006-01-02"
)

// Config is the complete configuration shared by the three commands.
type Config struct {
	Data      DataConfig      `koanf:"data"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Model     ModelConfig     `koanf:"model"`
	Log       LogConfig       `koanf:"log"`
	Report    ReportConfig    `koanf:"report"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// DataConfig controls the generated dataset.
type DataConfig struct {
	CSVPath   string `koanf:"csv_path" validate:"required"`
	XLSXPath  string `koanf:"xlsx_path"`
	StartDate string `koanf:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `koanf:"end_date" validate:"required,datetime=2006-01-02"`
	// Seed 0 derives the seed from the current time.
	Seed int64 `koanf:"seed"`
}

// ArtifactsConfig locates the encoder and model files.
type ArtifactsConfig struct {
	Dir         string `koanf:"dir"`
	EncoderPath string `koanf:"encoder_path" validate:"required"`
	ModelPath   string `koanf:"model_path" validate:"required"`
}

// ModelConfig holds random forest hyperparameters.
type ModelConfig struct {
	NEstimators    int   `koanf:"n_estimators" validate:"gt=0"`
	RandomState    int64 `koanf:"random_state"`
	MaxDepth       int   `koanf:"max_depth" validate:"gte=0"`
	MinSamplesLeaf int   `koanf:"min_samples_leaf" validate:"gt=0"`
	NJobs          int   `koanf:"n_jobs"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ReportConfig enables training charts when ChartDir is set.
type ReportConfig struct {
	ChartDir string `koanf:"chart_dir"`
}

// MetricsConfig enables the Prometheus textfile when TextfilePath is set.
type MetricsConfig struct {
	TextfilePath string `koanf:"textfile_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			CSVPath:   "dummy_food_data.csv",
			StartDate: "2024-01-01",
			EndDate:   "2024-12-31",
		},
		Artifacts: ArtifactsConfig{
			EncoderPath: "event_type_encoder.json",
			ModelPath:   "food_prediction_model.gob",
		},
		Model: ModelConfig{
			NEstimators:    100,
			RandomState:    42,
			MinSamplesLeaf: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Option adjusts the built-in defaults before the file and environment
// layers are applied.
type Option func(*Config)

// WithLogLevel changes the default log level.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.Log.Level = level }
}

// Load builds the configuration from defaults, the YAML file and the
// environment. A .env file in the working directory is applied to the
// environment first; variables already set win over it.
func Load(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	k := koanf.New(".")

	defaults := Default()
	for _, opt := range opts {
		opt(defaults)
	}
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns FOODCAST_CONFIG when set, otherwise
// DefaultConfigFile when it exists.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// envTransform maps FOODCAST_MODEL__N_ESTIMATORS to model.n_estimators.
func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate checks field formats and ranges.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	return nil
}

// StartTime returns Data.StartDate as a UTC date.
func (c *Config) StartTime() time.Time {
	t, _ := time.Parse(DateLayout, c.Data.StartDate)
	return t
}

// EndTime returns Data.EndDate as a UTC date.
func (c *Config) EndTime() time.Time {
	t, _ := time.Parse(DateLayout, c.Data.EndDate)
	return t
}

// LogConfig converts the log section for pkg/log.Setup.
func (c *Config) LogConfig() log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	return cfg
}

// EncoderOutput returns where the trainer writes the encoder artifact.
func (a ArtifactsConfig) EncoderOutput() string {
	return a.output(a.EncoderPath)
}

// ModelOutput returns where the trainer writes the model artifact.
func (a ArtifactsConfig) ModelOutput() string {
	return a.output(a.ModelPath)
}

func (a ArtifactsConfig) output(p string) string {
	if filepath.IsAbs(p) || a.Dir == "" {
		return p
	}
	return filepath.Join(a.Dir, p)
}

// Resolve locates an artifact for reading. Relative paths resolve against
// Dir when set. Otherwise the directory of the running executable is tried
// first, then the working directory.
func (a ArtifactsConfig) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if a.Dir != "" {
		return filepath.Join(a.Dir, p)
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), p)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return p
}
