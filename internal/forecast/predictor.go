package forecast

import (
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/YuminosukeSato/foodcast/internal/config"
	"github.com/YuminosukeSato/foodcast/internal/dataset"
	"github.com/YuminosukeSato/foodcast/internal/validation"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/pkg/log"
	"github.com/YuminosukeSato/foodcast/preprocessing"
)

// Request is one event to predict for.
type Request struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	EventType string `json:"event_type" validate:"required"`
	Attendees int    `json:"attendees" validate:"required,gt=0"`
}

// ParseRequest decodes and validates a JSON request such as
// {"date":"2024-06-15","event_type":"Wedding","attendees":150}.
func ParseRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, errors.Wrap(err, "invalid request JSON")
	}
	if err := validation.Struct(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Predictor answers single requests from loaded artifacts. It never
// modifies them.
type Predictor struct {
	encoder  *preprocessing.LabelEncoder
	artifact *ModelArtifact
	logger   log.Logger
}

// NewPredictor creates a Predictor from already loaded artifacts.
func NewPredictor(encoder *preprocessing.LabelEncoder, artifact *ModelArtifact) *Predictor {
	return &Predictor{
		encoder:  encoder,
		artifact: artifact,
		logger:   log.GetLoggerWithName("forecast.predictor"),
	}
}

// LoadPredictor reads the encoder and model artifacts, resolving relative
// paths with ArtifactsConfig.Resolve.
func LoadPredictor(cfg config.ArtifactsConfig) (*Predictor, error) {
	encoderPath := cfg.Resolve(cfg.EncoderPath)
	encoder := preprocessing.NewLabelEncoder()
	if err := encoder.Load(encoderPath); err != nil {
		return nil, errors.Wrap(err, "failed to load encoder")
	}

	modelPath := cfg.Resolve(cfg.ModelPath)
	artifact, err := LoadModelArtifact(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model")
	}

	p := NewPredictor(encoder, artifact)
	p.logger.Debug("Artifacts loaded",
		log.ModelIDKey, artifact.ModelID,
		log.PathKey, modelPath,
		log.SamplesKey, artifact.Samples,
	)
	return p, nil
}

// ModelID returns the ID stamped on the loaded model.
func (p *Predictor) ModelID() string {
	return p.artifact.ModelID
}

// Predict returns the predicted food_prepared quantity rounded to 2
// decimal places. An event type the encoder was not fitted on yields an
// UnknownCategoryError.
func (p *Predictor) Predict(req Request) (float64, error) {
	date, err := dataset.ParseDate(req.Date)
	if err != nil {
		return 0, errors.NewValidationError("date", "must be a date in 2006-01-02 format", req.Date)
	}
	if req.Attendees <= 0 {
		return 0, errors.NewValidationError("attendees", "must be greater than 0", req.Attendees)
	}

	codes, err := p.encoder.Transform([]string{req.EventType})
	if err != nil {
		p.logger.Warn("Unknown event type",
			log.EventTypeKey, req.EventType,
			log.ErrorCodeKey, log.ErrorUnknownCategory,
		)
		return 0, err
	}

	v, err := p.artifact.Forest.PredictOne(dataset.FeatureRow(codes[0], req.Attendees, date))
	if err != nil {
		return 0, err
	}
	v = dataset.Round(v)

	p.logger.Debug("Prediction made",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.EventTypeKey, req.EventType,
		log.AttendeesKey, req.Attendees,
		log.EventDateKey, req.Date,
	)
	return v, nil
}

// FormatPrediction renders a prediction with exactly two decimals.
func FormatPrediction(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
