package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScale linearly rescales values onto [lo, hi]. A constant column
// maps every value to lo. NaN and ±Inf entries become NaN.
func MinMaxScale(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	usable := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	vmin, vmax := floats.Min(usable), floats.Max(usable)
	span := vmax - vmin
	for i, v := range values {
		switch {
		case !finite(v):
			out[i] = math.NaN()
		case span == 0:
			out[i] = lo
		default:
			out[i] = lo + (v-vmin)/span*(hi-lo)
		}
	}
	return out
}

// Abs returns |v| for every value.
func Abs(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}
