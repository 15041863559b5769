package classify

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NaturalBreaks returns the k upper class bounds of the Fisher-Jenks
// partition of values, the grouping that minimises within-class variance.
// The last bound is the maximum. NaN and ±Inf are ignored. k is clipped to
// the number of distinct values; nil is returned for empty input.
func NaturalBreaks(values []float64, k int) []float64 {
	data := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 || k < 1 {
		return nil
	}
	sort.Float64s(data)
	if d := countDistinct(data); k > d {
		k = d
	}
	if k == 1 {
		return []float64{data[len(data)-1]}
	}

	n := len(data)
	// Row l, column j: first (1-based) index of the last class and the
	// minimum total variance when the first l values form j classes.
	lower := mat.NewDense(n+1, k+1, nil)
	variance := mat.NewDense(n+1, k+1, nil)
	for j := 1; j <= k; j++ {
		lower.Set(1, j, 1)
		for l := 2; l <= n; l++ {
			variance.Set(l, j, math.Inf(1))
		}
	}

	for l := 2; l <= n; l++ {
		var sum, sumSq, w float64
		for m := 1; m <= l; m++ {
			i3 := l - m + 1
			val := data[i3-1]
			sum += val
			sumSq += val * val
			w++
			v := sumSq - sum*sum/w
			if i4 := i3 - 1; i4 != 0 {
				for j := 2; j <= k; j++ {
					if c := v + variance.At(i4, j-1); variance.At(l, j) >= c {
						lower.Set(l, j, float64(i3))
						variance.Set(l, j, c)
					}
				}
			}
			if m == l {
				lower.Set(l, 1, 1)
				variance.Set(l, 1, v)
			}
		}
	}

	upper := make([]float64, k)
	upper[k-1] = data[n-1]
	row := n
	for j := k; j >= 2; j-- {
		id := int(lower.At(row, j)) - 2
		upper[j-2] = data[id]
		row = id + 1
	}
	return upper
}

func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}
