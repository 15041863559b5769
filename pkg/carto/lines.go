package carto

import (
	"context"
	"fmt"
	"image/color"

	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// DefaultLineColor strokes lines without a color column.
const DefaultLineColor = "#1f77b4"

// LineOptions configure PlotLines.
type LineOptions struct {
	// LineWidth is in pixels; zero selects 1.
	LineWidth float64
	// ColorColumn holds a color string per row, as accepted by classify.ParseColor.
	ColorColumn string
	// Color strokes rows without a color; it defaults to DefaultLineColor.
	Color string
	// Alpha defaults to DefaultAlpha.
	Alpha float64
	Z     int
	// Simplify is a Douglas-Peucker tolerance in degrees.
	Simplify float64
}

// PlotLines strokes every LineString of src onto fig. Other geometries are
// skipped.
func PlotLines(fig *render.Figure, src *source.Collection, opts LineOptions) error {
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1
	}
	if opts.Color == "" {
		opts.Color = DefaultLineColor
	}
	fallback, err := classify.ParseColor(opts.Color)
	if err != nil {
		return err
	}

	var colors []any
	if opts.ColorColumn != "" {
		if err := checkColumn(src, opts.ColorColumn); err != nil {
			return err
		}
		colors, _ = src.Column(opts.ColorColumn)
	}

	geoms := project.Collection(src, fig.Map.ToPixels, project.Options{Tolerance: opts.Simplify})
	layer := render.Layer{Name: "lines", Z: opts.Z}
	for _, g := range geoms {
		if g.Kind != project.Line {
			continue
		}
		c, err := lineColor(colors, g.Feature, fallback)
		if err != nil {
			return err
		}
		layer.Items = append(layer.Items, render.Item{
			Geometry: g,
			Style:    render.Style{Stroke: c, Alpha: alphaOr(opts.Alpha), LineWidth: opts.LineWidth},
		})
	}
	fig.AddLayer(layer)
	return nil
}

func lineColor(colors []any, i int, fallback color.Color) (color.Color, error) {
	if colors == nil || colors[i] == nil {
		return fallback, nil
	}
	s, ok := colors[i].(string)
	if !ok {
		return nil, fmt.Errorf("row %d: color value %v is not a string", i, colors[i])
	}
	c, err := classify.ParseColor(s)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", i, err)
	}
	return c, nil
}

// MarkersLayersOptions configure MarkersLayers.
type MarkersLayersOptions struct {
	Markers MarkerOptions
	Lines   LineOptions
}

// MarkersLayers draws the markers of src over the LineString rows of layer.
// The map is framed on src alone. A nil layer draws markers only.
func MarkersLayers(ctx context.Context, src, layer *source.Collection, p basemap.Provider, opts MarkersLayersOptions) (fig *render.Figure, err error) {
	defer obs.Time(ctx, "carto.MarkersLayers")(&err)

	fig, err = Markers(ctx, src, p, opts.Markers)
	if err != nil {
		return nil, err
	}
	if layer == nil {
		return fig, nil
	}
	lines := layer.LineStrings()
	if lines.Len() == 0 {
		return fig, nil
	}
	lo := opts.Lines
	lo.Z = LineZ
	if err := PlotLines(fig, lines, lo); err != nil {
		return nil, err
	}
	return fig, nil
}
