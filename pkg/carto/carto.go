// Package carto draws vector data over a fetched basemap in one call.
//
// Each entry point computes the extent of its source, fetches one basemap
// raster for it, projects every geometry into raster pixels, styles them
// from an attribute column and returns the composed render.Figure:
//
//	fig, err := carto.Choropleth(ctx, communes, basemap.NewTileServer(""), carto.ChoroplethOptions{
//		Column:  "population",
//		NColors: 5,
//	})
//	if err != nil {
//		return err
//	}
//	_, err = fig.WriteTo(out, render.PNG)
package carto

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

var (
	// ErrMissingColumn is returned when a named column is absent from the source.
	ErrMissingColumn = errors.New("carto: missing column")
	// ErrEmptySource is returned when there is no geometry to frame the map.
	ErrEmptySource = errors.New("carto: source has no geometries")
	// ErrNoProvider is returned when no basemap provider is given.
	ErrNoProvider = errors.New("carto: no basemap provider")
	// ErrScheme is returned for unknown classification schemes.
	ErrScheme = errors.New("carto: unknown scheme")
)

// DefaultAlpha is the opacity used when an options Alpha is zero.
const DefaultAlpha = 0.75

// Z orders of the layers the entry points create.
const (
	PolygonZ = 1
	LineZ    = 10
	MarkerZ  = 20
)

// Scheme selects how an attribute column is turned into colors.
type Scheme string

const (
	// NoScheme uses a single color.
	NoScheme Scheme = ""
	// FisherJenks bins numeric values at natural breaks.
	FisherJenks Scheme = "fisher_jenks"
	// Categorical gives each distinct value its own color.
	Categorical Scheme = "categorical"
)

// ParseScheme accepts fisher_jenks (also fisher-jenks, natural-breaks,
// natural_breaks), categorical, none and "".
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoScheme, nil
	case "fisher_jenks", "fisher-jenks", "natural-breaks", "natural_breaks":
		return FisherJenks, nil
	case "categorical":
		return Categorical, nil
	default:
		return NoScheme, fmt.Errorf("%w: %q", ErrScheme, s)
	}
}

// MapOptions frame the basemap of a figure.
type MapOptions struct {
	// Zoom is the requested tile zoom; zero selects basemap.DefaultZoom.
	// Providers may lower it to cap the tile count.
	Zoom int
	// Margin expands the extent by this fraction on each side.
	Margin float64
	// Width is the output width in pixels; zero keeps the raster width.
	Width int
	// Bound overrides the extent computed from the source.
	Bound *orb.Bound
	// Simplify is a Douglas-Peucker tolerance in degrees applied before
	// projection; zero keeps every vertex.
	Simplify float64
}

func alphaOr(a float64) float64 {
	if a <= 0 {
		return DefaultAlpha
	}
	return a
}

func checkColumn(src *source.Collection, name string) error {
	if name == "" {
		return fmt.Errorf("%w: no column given", ErrMissingColumn)
	}
	if src.Len() > 0 && !src.HasColumn(name) {
		return fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return nil
}

// Basemap returns a figure holding only the basemap framing src. Layers are
// added with PlotLines or render.Figure.AddLayer.
func Basemap(ctx context.Context, src *source.Collection, p basemap.Provider, opts MapOptions) (fig *render.Figure, err error) {
	defer obs.Time(ctx, "carto.Basemap")(&err)
	return newFigure(ctx, src, p, opts)
}

// newFigure fetches the basemap framing src and wraps it in a figure.
func newFigure(ctx context.Context, src *source.Collection, p basemap.Provider, opts MapOptions) (*render.Figure, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	var bound orb.Bound
	if opts.Bound != nil {
		bound = *opts.Bound
	} else {
		b, ok := src.Bound()
		if !ok {
			return nil, ErrEmptySource
		}
		bound = b
	}
	zoom := opts.Zoom
	if zoom <= 0 {
		zoom = basemap.DefaultZoom
	}

	m, err := fetch(ctx, p, bound, zoom, opts.Margin)
	if err != nil {
		return nil, err
	}
	return render.NewFigure(m, opts.Width), nil
}

func fetch(ctx context.Context, p basemap.Provider, bound orb.Bound, zoom int, margin float64) (m *basemap.Map, err error) {
	defer obs.Time(ctx, "carto.fetch")(&err)
	m, err = p.Fetch(ctx, bound, zoom, margin)
	if err != nil {
		return nil, fmt.Errorf("fetching basemap: %w", err)
	}
	return m, nil
}

// projectKind projects src onto the figure's raster, keeping only shapes of kind.
func projectKind(ctx context.Context, fig *render.Figure, src *source.Collection, kind project.Kind, opts project.Options) []project.PixelGeometry {
	defer obs.Time(ctx, "carto.project")(nil)

	all := project.Collection(src, fig.Map.ToPixels, opts)
	out := all[:0]
	for _, g := range all {
		if g.Kind == kind {
			out = append(out, g)
		}
	}
	return out
}

// floatsOf returns one value per feature, NaN where the value is not numeric.
func floatsOf(values []any) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.NaN()
		if f, ok := classify.Float(v); ok {
			out[i] = f
		}
	}
	return out
}
