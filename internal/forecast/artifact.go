// Package forecast wires the dataset, encoder and forest into the
// generate, train and predict pipelines.
package forecast

import (
	"time"

	"github.com/YuminosukeSato/foodcast/core/model"
	"github.com/YuminosukeSato/foodcast/metrics"
	"github.com/YuminosukeSato/foodcast/pkg/errors"
	"github.com/YuminosukeSato/foodcast/sklearn/ensemble"
)

// ModelArtifact is the gob payload of the model file: the fitted forest
// plus what is needed to describe it in logs.
type ModelArtifact struct {
	ModelID      string
	TrainedAt    time.Time
	Samples      int
	FeatureNames []string
	Metrics      metrics.Regression
	Forest       *ensemble.RandomForestRegressor
}

// Save writes the artifact to path, replacing any existing file.
func (a *ModelArtifact) Save(path string) error {
	if a.Forest == nil || !a.Forest.IsFitted() {
		return errors.NewNotFittedError("RandomForestRegressor", "Save")
	}
	return model.SaveModel(a, path)
}

// LoadModelArtifact reads an artifact written by Save.
func LoadModelArtifact(path string) (*ModelArtifact, error) {
	a := &ModelArtifact{}
	if err := model.LoadModel(a, path); err != nil {
		return nil, err
	}
	if a.Forest == nil || !a.Forest.IsFitted() {
		return nil, errors.NewModelError("LoadModelArtifact", "artifact holds no fitted model", nil)
	}
	return a, nil
}
