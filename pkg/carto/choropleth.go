package carto

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// ChoroplethOptions configure Choropleth.
type ChoroplethOptions struct {
	MapOptions

	Column string
	// Scheme defaults to FisherJenks.
	Scheme Scheme
	// NColors is the natural-breaks class count; zero selects classify.DefaultClasses.
	NColors int
	// Palette defaults to classify.DefaultPalette.
	Palette string
	// Alpha defaults to DefaultAlpha.
	Alpha    float64
	Colorbar render.Orientation
}

// Choropleth fills every polygon of src with a color derived from Column.
//
// With FisherJenks the column is binned at natural breaks and keyed by a
// colorbar; with Categorical each distinct value gets its own color and a
// legend entry. Non-polygon rows are skipped and null values draw nothing.
func Choropleth(ctx context.Context, src *source.Collection, p basemap.Provider, opts ChoroplethOptions) (fig *render.Figure, err error) {
	defer obs.Time(ctx, "carto.Choropleth")(&err)

	if err := checkColumn(src, opts.Column); err != nil {
		return nil, err
	}
	scheme := opts.Scheme
	if scheme == NoScheme {
		scheme = FisherJenks
	}
	if scheme != FisherJenks && scheme != Categorical {
		return nil, fmt.Errorf("%w: %q", ErrScheme, scheme)
	}

	fig, err = newFigure(ctx, src, p, opts.MapOptions)
	if err != nil {
		return nil, err
	}
	values, err := src.Column(opts.Column)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingColumn, err)
	}

	var colorOf func(v any) (color.Color, bool)
	switch scheme {
	case FisherJenks:
		bins, err := classify.Continuous(classify.Numeric(values), opts.NColors, opts.Palette)
		if errors.Is(err, classify.ErrNoData) {
			return fig, nil
		}
		if err != nil {
			return nil, err
		}
		colorOf = func(v any) (color.Color, bool) {
			f, ok := classify.Float(v)
			if !ok {
				return nil, false
			}
			return bins.Color(f), true
		}
		if opts.Colorbar != render.NoColorbar {
			fig.SetColorbar(&render.Colorbar{
				Label:       opts.Column,
				Bins:        bins,
				Orientation: opts.Colorbar,
				Alpha:       alphaOr(opts.Alpha),
			})
		}
	case Categorical:
		cats, err := classify.Categorical(values, opts.Palette)
		if errors.Is(err, classify.ErrNoData) {
			return fig, nil
		}
		if err != nil {
			return nil, err
		}
		colorOf = cats.Color
		fig.SetLegend(categoryLegend(cats, alphaOr(opts.Alpha), false))
	}

	geoms := projectKind(ctx, fig, src, project.Polygon, project.Options{Tolerance: opts.Simplify})
	layer := render.Layer{Name: opts.Column, Z: PolygonZ, Items: make([]render.Item, 0, len(geoms))}
	for _, g := range geoms {
		st := render.Style{Alpha: alphaOr(opts.Alpha), LineWidth: 1}
		if c, ok := colorOf(values[g.Feature]); ok {
			st.Fill, st.Stroke = c, c
		}
		layer.Items = append(layer.Items, render.Item{Geometry: g, Style: st})
	}
	fig.AddLayer(layer)
	return fig, nil
}

func categoryLegend(cats classify.CategoryStyle, alpha float64, marker bool) []render.LegendEntry {
	entries := make([]render.LegendEntry, 0, cats.Len())
	for _, k := range cats.Keys {
		c, _ := cats.Color(k)
		entries = append(entries, render.LegendEntry{Label: k, Color: c, Alpha: alpha, Marker: marker})
	}
	return entries
}
