package classify

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
)

// CategoryStyle assigns one color to each distinct value of a column.
type CategoryStyle struct {
	// Keys are the distinct values in sorted order, as returned by Key.
	Keys   []string
	colors map[string]color.Color
}

type categoryKind int

const (
	kindNone categoryKind = iota
	kindNumber
	kindText
	kindBool
)

// Categorical builds a CategoryStyle from the distinct non-null values.
// Numbers sort numerically, strings lexicographically and false before true.
// Columns mixing these types are rejected with ErrMixedCategories.
func Categorical(values []any, palette string) (CategoryStyle, error) {
	kind := kindNone
	var (
		nums  []float64
		texts []string
		bools [2]bool
		seen  = map[string]bool{}
	)
	for _, v := range values {
		k, ok := kindOf(v)
		if !ok {
			continue
		}
		if kind == kindNone {
			kind = k
		} else if kind != k {
			return CategoryStyle{}, fmt.Errorf("%w: %T", ErrMixedCategories, v)
		}
		key := Key(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		switch k {
		case kindNumber:
			f, _ := Float(v)
			nums = append(nums, f)
		case kindText:
			texts = append(texts, v.(string))
		case kindBool:
			if v.(bool) {
				bools[1] = true
			} else {
				bools[0] = true
			}
		}
	}

	var keys []string
	switch kind {
	case kindNone:
		return CategoryStyle{}, ErrNoData
	case kindNumber:
		sort.Float64s(nums)
		for _, f := range nums {
			keys = append(keys, Key(f))
		}
	case kindText:
		sort.Strings(texts)
		keys = texts
	case kindBool:
		for i, present := range bools {
			if present {
				keys = append(keys, strconv.FormatBool(i == 1))
			}
		}
	}

	colors, err := Palette(palette, len(keys))
	if err != nil {
		return CategoryStyle{}, err
	}
	cs := CategoryStyle{Keys: keys, colors: make(map[string]color.Color, len(keys))}
	for i, k := range keys {
		cs.colors[k] = colors[i]
	}
	return cs, nil
}

// Len returns the number of categories.
func (c CategoryStyle) Len() int { return len(c.Keys) }

// Color returns the color assigned to v. The second result is false for
// nulls and values not seen when the style was built.
func (c CategoryStyle) Color(v any) (color.Color, bool) {
	if _, ok := kindOf(v); !ok {
		return nil, false
	}
	col, ok := c.colors[Key(v)]
	return col, ok
}

// Key returns the canonical category key of v.
func Key(v any) string {
	if f, ok := Float(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func kindOf(v any) (categoryKind, bool) {
	if _, ok := Float(v); ok {
		return kindNumber, true
	}
	switch v.(type) {
	case string:
		return kindText, true
	case bool:
		return kindBool, true
	default:
		return kindNone, false
	}
}
