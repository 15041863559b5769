package carto

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// Marker defaults. Sizes are marker areas in square pixels.
const (
	DefaultMarkerSize  = 36
	DefaultMinSize     = 1
	DefaultMaxSize     = 30
	DefaultMarkerColor = "purple"
)

// MarkerOptions configure Markers.
//
// Column means different things per Scheme: with NoScheme it sizes the
// markers, with FisherJenks it colors them at natural breaks and sizes them
// by absolute value, and with Categorical it colors them per category.
type MarkerOptions struct {
	MapOptions

	Column string
	Scheme Scheme
	// SizeColumn sizes categorical markers.
	SizeColumn string
	Palette    string
	NColors    int
	// Alpha defaults to DefaultAlpha.
	Alpha float64
	// MinSize and MaxSize bound scaled marker areas.
	MinSize, MaxSize float64
	// Size is the area of unscaled markers.
	Size float64
	// Color fills markers that are not classified.
	Color    string
	Colorbar render.Orientation
}

func (o *MarkerOptions) defaults() {
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Size <= 0 {
		o.Size = DefaultMarkerSize
	}
	if o.Color == "" {
		o.Color = DefaultMarkerColor
	}
	o.Alpha = alphaOr(o.Alpha)
}

// Markers draws one marker per row of src. Polygons are marked at their
// area centroid; lines and other geometries are skipped.
func Markers(ctx context.Context, src *source.Collection, p basemap.Provider, opts MarkerOptions) (fig *render.Figure, err error) {
	defer obs.Time(ctx, "carto.Markers")(&err)

	opts.defaults()
	if opts.Scheme != NoScheme || opts.Column != "" {
		if err := checkColumn(src, opts.Column); err != nil {
			return nil, err
		}
	}
	if opts.SizeColumn != "" {
		if err := checkColumn(src, opts.SizeColumn); err != nil {
			return nil, err
		}
	}
	fixed, err := classify.ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	fig, err = newFigure(ctx, src, p, opts.MapOptions)
	if err != nil {
		return nil, err
	}

	n := src.Len()
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = opts.Size
	}
	colorOf := func(int) (color.Color, bool) { return fixed, true }

	switch opts.Scheme {
	case NoScheme:
		if opts.Column != "" {
			values, _ := src.Column(opts.Column)
			raw := floatsOf(values)
			if len(classify.Numeric(values)) == 0 {
				return fig, nil
			}
			sizes = scaleSizes(raw, opts.MinSize, opts.MaxSize)
		}
	case FisherJenks:
		values, _ := src.Column(opts.Column)
		raw := floatsOf(values)
		bins, err := classify.Continuous(classify.Numeric(values), opts.NColors, opts.Palette)
		if errors.Is(err, classify.ErrNoData) {
			return fig, nil
		}
		if err != nil {
			return nil, err
		}
		sizes = scaleSizes(classify.Abs(raw), opts.MinSize, opts.MaxSize)
		colorOf = func(i int) (color.Color, bool) {
			if math.IsNaN(raw[i]) {
				return nil, false
			}
			return bins.Color(raw[i]), true
		}
		if opts.Colorbar != render.NoColorbar {
			fig.SetColorbar(&render.Colorbar{Label: opts.Column, Bins: bins, Orientation: opts.Colorbar, Alpha: opts.Alpha})
		}
	case Categorical:
		values, _ := src.Column(opts.Column)
		cats, err := classify.Categorical(values, opts.Palette)
		if errors.Is(err, classify.ErrNoData) {
			return fig, nil
		}
		if err != nil {
			return nil, err
		}
		if opts.SizeColumn != "" {
			sv, _ := src.Column(opts.SizeColumn)
			sizes = scaleSizes(floatsOf(sv), opts.MinSize, opts.MaxSize)
		}
		colorOf = func(i int) (color.Color, bool) { return cats.Color(values[i]) }
		fig.SetLegend(categoryLegend(cats, opts.Alpha, true))
	default:
		return nil, fmt.Errorf("%w: %q", ErrScheme, opts.Scheme)
	}

	geoms := projectKind(ctx, fig, src, project.Point, project.Options{Centroids: true})
	layer := render.Layer{Name: "markers", Z: MarkerZ, Items: make([]render.Item, 0, len(geoms))}
	for _, g := range geoms {
		st := render.Style{Alpha: opts.Alpha, Size: sizes[g.Feature]}
		if c, ok := colorOf(g.Feature); ok {
			st.Fill = c
		}
		layer.Items = append(layer.Items, render.Item{Geometry: g, Style: st})
	}
	fig.AddLayer(layer)
	return fig, nil
}

// scaleSizes maps values onto [lo, hi]; missing values get lo.
func scaleSizes(values []float64, lo, hi float64) []float64 {
	out := classify.MinMaxScale(values, lo, hi)
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = lo
		}
	}
	return out
}
