package postgres

import (
	"encoding/json"
	"fmt"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
)

// marshalStages encodes session stages for the JSONB column.
// A session without stages is stored as an empty array, never SQL NULL.
func marshalStages(stages []v1.SleepStage) ([]byte, error) {
	if stages == nil {
		stages = []v1.SleepStage{}
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	return data, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSampleRow scans a samples row. Compatible with sql.Row and sql.Rows.
func scanSampleRow(row scanner) (v1.Sample, error) {
	var s v1.Sample
	var metric string
	if err := row.Scan(&metric, &s.ID, &s.Time, &s.Count, &s.Value, &s.BPM); err != nil {
		return v1.Sample{}, fmt.Errorf("failed to scan sample row: %w", err)
	}
	s.Metric = v1.Metric(metric)
	return s, nil
}

// scanSessionRow scans a sleep_sessions row and decodes its stages.
func scanSessionRow(row scanner) (v1.SleepSession, error) {
	var s v1.SleepSession
	var stagesJSON []byte
	if err := row.Scan(&s.ID, &s.Start, &s.End, &stagesJSON); err != nil {
		return v1.SleepSession{}, fmt.Errorf("failed to scan sleep session row: %w", err)
	}
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &s.Stages); err != nil {
			return v1.SleepSession{}, fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}
	return s, nil
}
