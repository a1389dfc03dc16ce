package dataset

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{"event_type_encoded", "attendees", "day_of_week", "month"}

// NumFeatures is len(FeatureNames).
const NumFeatures = 4

// Encoder maps event type labels to integer codes.
type Encoder interface {
	Transform(labels []string) ([]int, error)
}

// DayOfWeek returns 0 for Monday through 6 for Sunday.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Month returns 1 for January through 12 for December.
func Month(t time.Time) int {
	return int(t.Month())
}

// FeatureRow builds one model input row.
func FeatureRow(eventCode, attendees int, date time.Time) []float64 {
	return []float64{
		float64(eventCode),
		float64(attendees),
		float64(DayOfWeek(date)),
		float64(Month(date)),
	}
}

// BuildFeatures encodes every record and returns the n×4 design matrix and
// the food_prepared target.
func BuildFeatures(records []EventRecord, enc Encoder) (*mat.Dense, *mat.VecDense, error) {
	if len(records) == 0 {
		return nil, nil, errors.NewModelError("BuildFeatures", "empty data", errors.ErrEmptyData)
	}

	labels := EventTypes(records)
	codes, err := enc.Transform(labels)
	if err != nil {
		return nil, nil, err
	}

	X := mat.NewDense(len(records), NumFeatures, nil)
	y := mat.NewVecDense(len(records), nil)
	for i, r := range records {
		X.SetRow(i, FeatureRow(codes[i], r.Attendees, r.Date))
		y.SetVec(i, r.FoodPrepared)
	}
	return X, y, nil
}

// EventTypes returns the event_type column.
func EventTypes(records []EventRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.EventType
	}
	return out
}
