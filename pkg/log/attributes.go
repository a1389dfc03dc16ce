// Attribute keys shared by every log line so that training and inference
// runs can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model ("RandomForestRegressor", "LabelEncoder").
	ModelNameKey = "model.name"

	// ModelIDKey is the UUID stamped on a trained model artifact.
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// PathKey is a file read or written by the operation.
	PathKey = "data.path"

	// DateRangeKey is the inclusive date range of a generated dataset.
	DateRangeKey = "data.date_range"
)

// Event request context
const (
	EventTypeKey = "event.type"
	AttendeesKey = "event.attendees"
	EventDateKey = "event.date"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"
	R2ScoreKey    = "metrics.r2_score"
	MAEKey        = "metrics.mae"
	RMSEKey       = "metrics.rmse"
	PredsKey      = "preds.count"
)

// Hyperparameters and Configuration
const (
	NEstimatorsKey = "hyperparams.n_estimators"
	RandomSeedKey  = "config.random_seed"
)

// Error Context
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationGenerate  = "generate"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorUnknownCategory = "UNKNOWN_CATEGORY"
	ErrorInvalidInput    = "INVALID_INPUT"
	ErrorDataFormat      = "DATA_FORMAT"
)
