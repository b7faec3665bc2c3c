package aggregation

import (
	"fmt"

	"github.com/shopspring/decimal"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/aggregation"
)

// bucketReduction holds one reducer per operator for a single hour bucket.
// total is the float64 running sum of the same values in sample order, which
// is how the receiving side computes fractional totals and averages.
type bucketReduction struct {
	bucket   aggregation.Bucket
	reducers map[string]*aggregation.Reducer
	total    float64
}

// reduceByBucket filters samples to the window, groups them by hour bucket
// and folds value(sample) into one reducer per op and into total. Buckets
// come back in the order they were first seen.
func reduceByBucket(
	clock aggregation.Clock,
	window aggregation.Window,
	samples []v1.Sample,
	ops []string,
	value func(v1.Sample) (decimal.Decimal, error),
) ([]*bucketReduction, error) {
	var ordered []*bucketReduction
	index := make(map[aggregation.Bucket]*bucketReduction)

	for _, s := range samples {
		if !window.Contains(s.Time) {
			continue
		}

		v, err := value(s)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.ID, err)
		}

		b := clock.BucketOf(s.Time)
		br, ok := index[b]
		if !ok {
			br = &bucketReduction{bucket: b, reducers: make(map[string]*aggregation.Reducer, len(ops))}
			for _, op := range ops {
				br.reducers[op] = aggregation.MustReducer(op)
			}
			index[b] = br
			ordered = append(ordered, br)
		}
		for _, r := range br.reducers {
			r.Add(v)
		}
		br.total += v.InexactFloat64()
	}
	return ordered, nil
}

// SumSteps returns the per-bucket step totals inside window.
func SumSteps(clock aggregation.Clock, window aggregation.Window, samples []v1.Sample) []v1.DatedTimeValue[int64] {
	groups, _ := reduceByBucket(clock, window, samples, []string{aggregation.OpSum},
		func(s v1.Sample) (decimal.Decimal, error) { return decimal.NewFromInt(s.Count), nil })

	out := make([]v1.DatedTimeValue[int64], 0, len(groups))
	for _, g := range groups {
		out = append(out, v1.DatedTimeValue[int64]{
			Date:  g.bucket.Date,
			Time:  g.bucket.Hour,
			Value: g.reducers[aggregation.OpSum].Value().IntPart(),
		})
	}
	return out
}

// SumValues returns per-bucket totals of Sample.Value (kilocalories or
// meters), added as float64 in sample order.
func SumValues(clock aggregation.Clock, window aggregation.Window, samples []v1.Sample) ([]v1.DatedTimeValue[float64], error) {
	groups, err := reduceByBucket(clock, window, samples, nil,
		func(s v1.Sample) (decimal.Decimal, error) { return aggregation.FromFloat(s.Value) })
	if err != nil {
		return nil, err
	}

	out := make([]v1.DatedTimeValue[float64], 0, len(groups))
	for _, g := range groups {
		out = append(out, v1.DatedTimeValue[float64]{
			Date:  g.bucket.Date,
			Time:  g.bucket.Hour,
			Value: g.total,
		})
	}
	return out, nil
}

// HeartRateStats returns average, max and min bpm for every bucket that has
// at least one reading, three records per bucket in that order.
//
// Readings pass through their printed form ("72.0") and are parsed back;
// anything unparseable counts as 0. The average is the float64 sum divided
// by the reading count.
func HeartRateStats(clock aggregation.Clock, window aggregation.Window, samples []v1.Sample) []v1.HeartRateData {
	ops := []string{aggregation.OpCount, aggregation.OpMax, aggregation.OpMin}
	groups, _ := reduceByBucket(clock, window, samples, ops,
		func(s v1.Sample) (decimal.Decimal, error) {
			printed := aggregation.FormatFloat(float64(s.BPM))
			return aggregation.ParseDecimal(printed), nil
		})

	out := make([]v1.HeartRateData, 0, 3*len(groups))
	for _, g := range groups {
		n := g.reducers[aggregation.OpCount].Value().IntPart()
		stats := []float64{
			g.total / float64(n),
			g.reducers[aggregation.OpMax].Value().InexactFloat64(),
			g.reducers[aggregation.OpMin].Value().InexactFloat64(),
		}
		for _, v := range stats {
			out = append(out, v1.HeartRateData{
				BPM:  aggregation.FormatFloat(v),
				Date: g.bucket.Date,
				Time: g.bucket.Hour,
			})
		}
	}
	return out
}
