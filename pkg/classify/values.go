// Package classify maps attribute columns to colors and marker sizes.
//
// Continuous columns are binned with Fisher-Jenks natural breaks and
// colored from a named palette; categorical columns get one palette color
// per distinct value.
package classify

import (
	"encoding/json"
	"errors"
	"math"
)

var (
	// ErrNoData is returned when a column holds no usable values.
	ErrNoData = errors.New("classify: no data")
	// ErrUnknownPalette is returned for palette names that are not registered.
	ErrUnknownPalette = errors.New("classify: unknown palette")
	// ErrMixedCategories is returned when a categorical column mixes value types.
	ErrMixedCategories = errors.New("classify: column mixes numeric and text categories")
	// ErrColor is returned for unparseable color strings.
	ErrColor = errors.New("classify: invalid color")
)

// Float converts a numeric column value. Nil, NaN, ±Inf and non-numeric
// values report false.
func Float(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if !finite(f) {
		return 0, false
	}
	return f, true
}

// Numeric returns the usable numeric values of a column, dropping the rest.
func Numeric(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := Float(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
