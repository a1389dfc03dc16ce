// Package foodcast predicts how much food to prepare for an event.
//
// The module has three commands that share only files on disk:
//
//   - cmd/generate writes one synthetic event per day to dummy_food_data.csv
//   - cmd/train fits the event type encoder and a random forest on that file
//     and writes event_type_encoder.json and food_prediction_model.gob
//   - cmd/predict loads both artifacts and prints one prediction
//
// # Quick Start
//
//	go run ./cmd/generate
//	go run ./cmd/train
//	go run ./cmd/predict '{"date":"2024-06-15","event_type":"Wedding","attendees":150}'
//
// # Packages
//
//   - internal/dataset: event records, generation, CSV and XLSX files, features
//   - internal/forecast: the generate, train and predict pipelines
//   - internal/config: koanf configuration (defaults, foodcast.yaml, FOODCAST_* env)
//   - internal/report: training charts and the Prometheus textfile
//   - preprocessing: LabelEncoder
//   - sklearn/tree, sklearn/ensemble: DecisionTreeRegressor, RandomForestRegressor
//   - metrics: regression metrics (MSE, RMSE, MAE, R²)
//   - core/model: estimator interfaces and artifact persistence
//   - core/parallel: parallel range processing
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Features
//
// The model sees four features per event, in this order:
//
//	event_type_encoded, attendees, day_of_week (Monday=0), month (1-12)
//
// and predicts food_prepared. Event types unknown to the encoder are
// rejected with errors.UnknownCategoryError.
//
// # Configuration
//
// Every setting can be overridden by environment variables, using a double
// underscore between sections:
//
//	FOODCAST_DATA__CSV_PATH=/data/events.csv
//	FOODCAST_MODEL__N_ESTIMATORS=200
//	FOODCAST_ARTIFACTS__DIR=/opt/foodcast
package foodcast
