package aggregation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a numeric string such as "72" or "72.0".
// Returns decimal.Zero if the string is empty or not a number: a malformed
// reading degrades the statistic instead of failing the upload.
func ParseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ErrNotFinite is returned for NaN or infinite readings.
var ErrNotFinite = errors.New("value is not a finite number")

// FromFloat converts a float reading to an exact decimal using its shortest
// round-trip representation, so 0.1 stays 0.1.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNotFinite, f)
	}
	return decimal.NewFromFloat(f), nil
}
