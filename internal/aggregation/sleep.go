package aggregation

import (
	"time"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/aggregation"
)

// SleepSummary is the sleep part of one upload.
type SleepSummary struct {
	TotalMinutes int64
	Deep         []v1.DatedTimeValue[int64]
	REM          []v1.DatedTimeValue[int64]
	Light        []v1.DatedTimeValue[int64]
}

// SplitSleep totals sessions that started inside window and lists their
// stages that started inside window, one point per stage.
//
// A session contributes its full length to TotalMinutes even when some of its
// stages fall outside the window; those stages are only left out of the
// per-kind lists. Stages of kind other never appear in a list.
func SplitSleep(clock aggregation.Clock, window aggregation.Window, sessions []v1.SleepSession) SleepSummary {
	summary := SleepSummary{
		Deep:  []v1.DatedTimeValue[int64]{},
		REM:   []v1.DatedTimeValue[int64]{},
		Light: []v1.DatedTimeValue[int64]{},
	}

	for _, session := range sessions {
		if !window.Contains(session.Start) {
			continue
		}
		summary.TotalMinutes += minutes(session.End.Sub(session.Start))

		for _, stage := range session.Stages {
			if !window.Contains(stage.Start) {
				continue
			}
			b := clock.BucketOf(stage.Start)
			point := v1.DatedTimeValue[int64]{Date: b.Date, Time: b.Hour, Value: minutes(stage.End.Sub(stage.Start))}

			switch stage.Kind {
			case v1.StageDeep:
				summary.Deep = append(summary.Deep, point)
			case v1.StageREM:
				summary.REM = append(summary.REM, point)
			case v1.StageLight:
				summary.Light = append(summary.Light, point)
			}
		}
	}
	return summary
}

// minutes truncates toward zero.
func minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}
