package render

import (
	"image/color"
	"math"

	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
)

// Style is the resolved look of one drawn geometry.
type Style struct {
	Fill   color.Color
	Stroke color.Color
	// Alpha is the opacity in (0, 1]; zero draws opaque.
	Alpha float64
	// LineWidth is the stroke width in pixels.
	LineWidth float64
	// Size is the marker area in square pixels.
	Size float64
}

// Item is a geometry with its style.
type Item struct {
	Geometry project.PixelGeometry
	Style    Style
}

// Layer is a group of items drawn together. Layers draw in ascending Z.
type Layer struct {
	Name  string
	Z     int
	Items []Item
}

// Empty reports whether the layer draws nothing.
func (l Layer) Empty() bool {
	for _, it := range l.Items {
		if !it.Geometry.Empty() {
			return false
		}
	}
	return true
}

// LegendEntry is one row of a categorical legend.
type LegendEntry struct {
	Label string
	Color color.Color
	Alpha float64
	// Marker draws a circle thumbnail instead of a filled patch.
	Marker bool
}

// Orientation places a colorbar.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
	NoColorbar
)

// ParseOrientation accepts "vertical", "horizontal", "none" and "".
func ParseOrientation(s string) (Orientation, bool) {
	switch s {
	case "", "vertical":
		return Vertical, true
	case "horizontal":
		return Horizontal, true
	case "none":
		return NoColorbar, true
	default:
		return Vertical, false
	}
}

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case NoColorbar:
		return "none"
	default:
		return "vertical"
	}
}

// Colorbar keys the intervals of a continuous classification.
type Colorbar struct {
	Label       string
	Bins        classify.StyleBin
	Orientation Orientation
	Alpha       float64
}

// withAlpha returns c with its opacity scaled by alpha.
func withAlpha(c color.Color, alpha float64) color.Color {
	if c == nil {
		return nil
	}
	if alpha <= 0 || alpha >= 1 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * alpha))
	return n
}
