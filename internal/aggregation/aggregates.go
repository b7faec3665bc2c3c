// Package aggregation turns raw samples into the hourly aggregates of one
// upload and drives the hourly run schedule.
package aggregation

import (
	"fmt"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/aggregation"
)

// Inputs is everything read from the data source for one window.
type Inputs struct {
	Samples  map[v1.Metric][]v1.Sample
	Sessions []v1.SleepSession
}

// Aggregates is the reduced content of one upload.
type Aggregates struct {
	Steps     []v1.DatedTimeValue[int64]
	HeartRate []v1.HeartRateData
	Calories  []v1.DatedTimeValue[float64]
	Distance  []v1.DatedTimeValue[float64]
	Sleep     SleepSummary
}

// Compute reduces in to the aggregates of window. Any metric failing to
// reduce fails the whole computation.
func Compute(clock aggregation.Clock, window aggregation.Window, in Inputs) (Aggregates, error) {
	calories, err := SumValues(clock, window, in.Samples[v1.MetricCalories])
	if err != nil {
		return Aggregates{}, fmt.Errorf("aggregate calories: %w", err)
	}
	distance, err := SumValues(clock, window, in.Samples[v1.MetricDistance])
	if err != nil {
		return Aggregates{}, fmt.Errorf("aggregate distance: %w", err)
	}

	return Aggregates{
		Steps:     SumSteps(clock, window, in.Samples[v1.MetricSteps]),
		HeartRate: HeartRateStats(clock, window, in.Samples[v1.MetricHeartRate]),
		Calories:  calories,
		Distance:  distance,
		Sleep:     SplitSleep(clock, window, in.Sessions),
	}, nil
}
