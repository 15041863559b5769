package classify

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// DefaultClasses is the interval count used when none is given.
const DefaultClasses = 5

// StyleBin holds the intervals of a continuous classification.
//
// Breaks are the strictly increasing lower bounds of each interval, so
// interval i is [Breaks[i], Breaks[i+1]) and the last one is open-ended.
// Colors has one entry per interval. Max is the column maximum, kept for
// labelling.
type StyleBin struct {
	Breaks []float64
	Max    float64
	Colors []color.Color
}

// Continuous classifies values into at most k natural-breaks intervals
// colored from palette. Fewer distinct values than k yield fewer intervals.
func Continuous(values []float64, k int, palette string) (StyleBin, error) {
	if k <= 0 {
		k = DefaultClasses
	}
	upper := NaturalBreaks(values, k)
	if len(upper) == 0 {
		return StyleBin{}, ErrNoData
	}

	data := make([]float64, 0, len(values))
	for _, v := range values {
		if _, ok := Float(v); ok {
			data = append(data, v)
		}
	}
	lo := floats.Min(data)

	breaks := []float64{lo}
	for _, u := range upper[:len(upper)-1] {
		if u > breaks[len(breaks)-1] {
			breaks = append(breaks, u)
		}
	}

	colors, err := Palette(palette, len(breaks))
	if err != nil {
		return StyleBin{}, err
	}
	return StyleBin{Breaks: breaks, Max: upper[len(upper)-1], Colors: colors}, nil
}

// Len returns the number of intervals.
func (b StyleBin) Len() int { return len(b.Breaks) }

// Interval returns the index of the interval holding v. Values below the
// first break clamp to 0 and values past the last break fall in the last
// interval.
func (b StyleBin) Interval(v float64) int {
	i := sort.Search(len(b.Breaks), func(i int) bool { return b.Breaks[i] > v }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// Color returns the color of the interval holding v.
func (b StyleBin) Color(v float64) color.Color {
	if len(b.Colors) == 0 {
		return color.Transparent
	}
	return b.Colors[b.Interval(v)]
}

// Labels returns "lo - hi" labels for each interval.
func (b StyleBin) Labels() []string {
	out := make([]string, len(b.Breaks))
	for i, lo := range b.Breaks {
		hi := b.Max
		if i+1 < len(b.Breaks) {
			hi = b.Breaks[i+1]
		}
		out[i] = fmt.Sprintf("%s - %s", FormatValue(lo), FormatValue(hi))
	}
	return out
}

// FormatValue formats a break value compactly.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
