package v1

import (
	"fmt"
	"math"
	"time"
)

// Metric names a health record type read from the device data source.
type Metric string

const (
	MetricSteps     Metric = "steps"
	MetricCalories  Metric = "calories"
	MetricDistance  Metric = "distance"
	MetricHeartRate Metric = "heart_rate"
	MetricSleep     Metric = "sleep"
)

// AllMetrics lists every metric the upload pipeline reads.
var AllMetrics = []Metric{MetricSteps, MetricCalories, MetricDistance, MetricHeartRate, MetricSleep}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	for _, m := range AllMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Sample is a single time-stamped reading from the device data source.
// Samples are immutable once stored; which value field is meaningful
// depends on Metric.
type Sample struct {
	// ID is the data source's record identifier. Re-sending a sample with the
	// same (Metric, ID) is a no-op.
	ID string `json:"id"`

	Metric Metric `json:"metric"`

	// Time is the record start time (or the instant of a heart-rate reading).
	// It is the only timestamp used for window filtering and bucketing.
	Time time.Time `json:"time"`

	// Count is the step count for MetricSteps.
	Count int64 `json:"count,omitempty"`

	// Value is kilocalories for MetricCalories and meters for MetricDistance.
	Value float64 `json:"value,omitempty"`

	// BPM is beats-per-minute for MetricHeartRate.
	BPM int64 `json:"bpm,omitempty"`
}

// Validate ensures the sample carries the fields its metric needs.
func (s *Sample) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Time.IsZero() {
		return fmt.Errorf("time is required")
	}

	switch s.Metric {
	case MetricSteps:
		if s.Count < 0 {
			return fmt.Errorf("count must be >= 0")
		}
	case MetricCalories, MetricDistance:
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return fmt.Errorf("value must be a finite number")
		}
		if s.Value < 0 {
			return fmt.Errorf("value must be >= 0")
		}
	case MetricHeartRate:
		if s.BPM <= 0 {
			return fmt.Errorf("bpm must be > 0")
		}
	case MetricSleep:
		return fmt.Errorf("sleep is recorded as sessions, not samples")
	case "":
		return fmt.Errorf("metric is required")
	default:
		return fmt.Errorf("unknown metric %q", s.Metric)
	}
	return nil
}

// StageKind classifies a sleep stage.
type StageKind string

const (
	StageDeep  StageKind = "deep"
	StageREM   StageKind = "rem"
	StageLight StageKind = "light"
	StageOther StageKind = "other"
)

// SleepStage is one contiguous stage inside a sleep session.
type SleepStage struct {
	Kind  StageKind `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SleepSession is one night (or nap) of sleep with its ordered stages.
type SleepSession struct {
	ID     string       `json:"id"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Stages []SleepStage `json:"stages"`
}

// Validate ensures session and stage bounds are ordered. Unknown stage kinds
// are normalized to StageOther.
func (s *SleepSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Start.IsZero() || s.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if s.End.Before(s.Start) {
		return fmt.Errorf("end must not be before start")
	}
	for i := range s.Stages {
		st := &s.Stages[i]
		if st.End.Before(st.Start) {
			return fmt.Errorf("stage %d: end must not be before start", i)
		}
		switch st.Kind {
		case StageDeep, StageREM, StageLight, StageOther:
		default:
			st.Kind = StageOther
		}
	}
	return nil
}
