// Package payload assembles the upload record from aggregates, in plain and
// encrypted form.
package payload

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lia-lab/lia-sync/internal/aggregation"
	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
)

// ErrSerialization marks a value that could not be turned into its wire form.
// The whole payload is discarded when it occurs.
var ErrSerialization = errors.New("payload serialization failed")

// Encrypter encrypts one canonical value string.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// BuildPlain assembles the plaintext payload. Empty metrics are emitted as
// empty lists, never null.
func BuildPlain(agg aggregation.Aggregates) v1.HealthPayload {
	return v1.HealthPayload{
		StepData:           nonNil(agg.Steps),
		HeartRateData:      nonNil(agg.HeartRate),
		CaloriesBurnedData: nonNil(agg.Calories),
		DistanceWalked:     nonNil(agg.Distance),
		TotalSleepMinutes:  agg.Sleep.TotalMinutes,
		DeepSleepMinutes:   nonNil(agg.Sleep.Deep),
		RemSleepMinutes:    nonNil(agg.Sleep.REM),
		LightSleepMinutes:  nonNil(agg.Sleep.Light),
	}
}

// BuildEncrypted assembles the payload with every leaf value replaced by the
// ciphertext of its canonical string. Dates, hours and record counts are left
// as in BuildPlain.
func BuildEncrypted(agg aggregation.Aggregates, enc Encrypter) (v1.HealthPayloadEncrypted, error) {
	plain := BuildPlain(agg)
	b := &encBuilder{enc: enc}

	out := v1.HealthPayloadEncrypted{
		StepData:           encryptList(b, "stepData", plain.StepData, formatInt),
		CaloriesBurnedData: encryptList(b, "caloriesBurnedData", plain.CaloriesBurnedData, coreagg.FormatFloat),
		DistanceWalked:     encryptList(b, "distanceWalked", plain.DistanceWalked, coreagg.FormatFloat),
		TotalSleepMinutes:  b.encrypt("totalSleepMinutes", formatInt(plain.TotalSleepMinutes)),
		DeepSleepMinutes:   encryptList(b, "deepSleepMinutes", plain.DeepSleepMinutes, formatInt),
		RemSleepMinutes:    encryptList(b, "remSleepMinutes", plain.RemSleepMinutes, formatInt),
		LightSleepMinutes:  encryptList(b, "lightSleepMinutes", plain.LightSleepMinutes, formatInt),
	}

	out.HeartRateData = make([]v1.HeartRateData, len(plain.HeartRateData))
	for i, hr := range plain.HeartRateData {
		out.HeartRateData[i] = v1.HeartRateData{
			BPM:  b.encrypt("heartRateData", hr.BPM),
			Date: hr.Date,
			Time: hr.Time,
		}
	}

	if b.err != nil {
		return v1.HealthPayloadEncrypted{}, b.err
	}
	return out, nil
}

// encBuilder keeps the first encryption error so the assembly above can stay
// linear. Once an error is set further calls are skipped.
type encBuilder struct {
	enc Encrypter
	err error
}

func (b *encBuilder) encrypt(field, plaintext string) string {
	if b.err != nil {
		return ""
	}
	ct, err := b.enc.Encrypt(plaintext)
	if err != nil {
		b.err = fmt.Errorf("%w: %s: %v", ErrSerialization, field, err)
		return ""
	}
	return ct
}

func encryptList[T any](b *encBuilder, field string, in []v1.DatedTimeValue[T], format func(T) string) []v1.DatedTimeValue[string] {
	out := make([]v1.DatedTimeValue[string], len(in))
	for i, p := range in {
		out[i] = v1.DatedTimeValue[string]{Date: p.Date, Time: p.Time, Value: b.encrypt(field, format(p.Value))}
	}
	return out
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
