package aggregation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Supported reduce operators.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpMin   = "min"
	OpMax   = "max"
)

// Aggregator defines the reduce semantics of an aggregation operator.
// To add a new operator: implement this interface and register it in Operators.
type Aggregator interface {
	// Initial returns the aggregate value after the first value for a bucket.
	// count → 1; sum/min/max → the incoming value itself.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds an incoming value into an existing aggregate.
	Apply(current, incoming decimal.Decimal) decimal.Decimal
}

// Operators is the registry of all supported aggregation operators.
var Operators = map[string]Aggregator{
	OpCount: countAgg{},
	OpSum:   sumAgg{},
	OpMin:   minAgg{},
	OpMax:   maxAgg{},
}

// countAgg increments by 1 per value. The incoming value is ignored.
type countAgg struct{}

func (countAgg) Initial(_ decimal.Decimal) decimal.Decimal    { return decimal.NewFromInt(1) }
func (countAgg) Apply(cur, _ decimal.Decimal) decimal.Decimal { return cur.Add(decimal.NewFromInt(1)) }

type sumAgg struct{}

func (sumAgg) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }

type minAgg struct{}

func (minAgg) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (minAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.LessThan(cur) {
		return inc
	}
	return cur
}

type maxAgg struct{}

func (maxAgg) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (maxAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.GreaterThan(cur) {
		return inc
	}
	return cur
}

// Reducer folds a stream of values with one operator.
type Reducer struct {
	agg   Aggregator
	value decimal.Decimal
	n     int64
}

// NewReducer returns a Reducer for a registered operator.
func NewReducer(op string) (*Reducer, error) {
	agg, ok := Operators[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
	return &Reducer{agg: agg}, nil
}

// MustReducer is NewReducer for operators known at compile time.
func MustReducer(op string) *Reducer {
	r, err := NewReducer(op)
	if err != nil {
		panic(err)
	}
	return r
}

// Add folds v into the reducer.
func (r *Reducer) Add(v decimal.Decimal) {
	if r.n == 0 {
		r.value = r.agg.Initial(v)
	} else {
		r.value = r.agg.Apply(r.value, v)
	}
	r.n++
}

// Value returns the current aggregate, zero when nothing was added.
func (r *Reducer) Value() decimal.Decimal { return r.value }
