// Package dataset generates, stores and featurises synthetic event records.
package dataset

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used in files and requests.
const DateLayout = "2006-01-02"

// EventRecord is one day's event with its food quantities.
type EventRecord struct {
	Date         time.Time
	EventType    string
	Attendees    int
	FoodPrepared float64
	FoodConsumed float64
	WastedFood   float64
}

// Columns is the header written to and expected from event files.
var Columns = []string{"date", "event_type", "attendees", "food_prepared", "food_consumed", "wasted_food"}

// Round rounds v to 2 decimal places, half away from zero.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
