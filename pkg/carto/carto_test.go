package carto

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/project"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// fakeProvider returns solid rasters covering the requested tile box.
type fakeProvider struct {
	calls int
	err   error
}

func (p *fakeProvider) Fetch(_ context.Context, bound orb.Bound, zoom int, margin float64) (*basemap.Map, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	bound = basemap.Pad(bound, margin)
	box := basemap.ChooseZoom(bound, zoom, basemap.DefaultMaxTiles)
	img := image.NewRGBA(image.Rect(0, 0, box.Cols()*basemap.TileSize, box.Rows()*basemap.TileSize))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return &basemap.Map{Image: img, Zoom: box.Zoom, Bound: bound, Box: box}, nil
}

func square(lon, lat, d float64) orb.Polygon {
	return orb.Polygon{{{lon, lat}, {lon + d, lat}, {lon + d, lat + d}, {lon, lat + d}, {lon, lat}}}
}

func feature(g orb.Geometry, props map[string]any) source.Feature {
	return source.Feature{Geometry: g, Properties: props}
}

func communes() *source.Collection {
	return source.New(
		feature(square(-70.70, -33.50, 0.02), map[string]any{"pop": 1.0, "zone": "a"}),
		feature(square(-70.66, -33.50, 0.02), map[string]any{"pop": 5.0, "zone": "b"}),
		feature(orb.MultiPolygon{square(-70.62, -33.50, 0.01), square(-70.60, -33.48, 0.01)}, map[string]any{"pop": 10.0, "zone": "a"}),
		feature(square(-70.70, -33.46, 0.02), map[string]any{"pop": nil, "zone": "c"}),
		feature(orb.Point{-70.65, -33.45}, map[string]any{"pop": 3.0, "zone": "a"}),
	)
}

func stops() *source.Collection {
	return source.New(
		feature(orb.Point{-70.65, -33.44}, map[string]any{"riders": 0.0, "line": "L1", "delta": -4.0}),
		feature(orb.Point{-70.64, -33.45}, map[string]any{"riders": 5.0, "line": "L2", "delta": 2.0}),
		feature(orb.Point{-70.63, -33.46}, map[string]any{"riders": 10.0, "line": "L1", "delta": 8.0}),
	)
}

func TestChoroplethFisherJenks(t *testing.T) {
	p := &fakeProvider{}
	fig, err := Choropleth(context.Background(), communes(), p, ChoroplethOptions{Column: "pop", NColors: 2})
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)

	cb := fig.Colorbar()
	require.NotNil(t, cb)
	require.Equal(t, "pop", cb.Label)
	require.Equal(t, []float64{1, 5}, cb.Bins.Breaks)

	layers := fig.Layers()
	require.Len(t, layers, 1)
	items := layers[0].Items
	require.Len(t, items, 5, "multipolygon splits, the point is skipped")

	require.Equal(t, cb.Bins.Colors[0], items[0].Style.Fill)
	require.Equal(t, cb.Bins.Colors[1], items[1].Style.Fill)
	require.Equal(t, cb.Bins.Colors[1], items[2].Style.Fill)
	require.Equal(t, items[2].Geometry.Feature, items[3].Geometry.Feature)
	require.Nil(t, items[4].Style.Fill, "null value draws nothing")
	require.Equal(t, DefaultAlpha, items[0].Style.Alpha)
}

func TestChoroplethCategorical(t *testing.T) {
	src := source.New(
		feature(square(0, 0, 1), map[string]any{"k": "a"}),
		feature(square(1, 0, 1), map[string]any{"k": "b"}),
		feature(square(2, 0, 1), map[string]any{"k": "a"}),
		feature(square(3, 0, 1), map[string]any{"k": "c"}),
	)
	fig, err := Choropleth(context.Background(), src, &fakeProvider{}, ChoroplethOptions{
		Column: "k", Scheme: Categorical, Palette: "Set1", MapOptions: MapOptions{Zoom: 6},
	})
	require.NoError(t, err)
	require.Nil(t, fig.Colorbar())

	legend := fig.Legend()
	require.Len(t, legend, 3)
	labels := make([]string, len(legend))
	distinct := map[color.Color]bool{}
	for i, e := range legend {
		labels[i] = e.Label
		distinct[e.Color] = true
	}
	require.Equal(t, []string{"a", "b", "c"}, labels)
	require.Len(t, distinct, 3)

	items := fig.Layers()[0].Items
	require.Equal(t, items[0].Style.Fill, items[2].Style.Fill)
	require.NotEqual(t, items[0].Style.Fill, items[1].Style.Fill)
	require.Equal(t, legend[2].Color, items[3].Style.Fill)
}

func TestChoroplethErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Choropleth(ctx, communes(), &fakeProvider{}, ChoroplethOptions{Column: "nope"})
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = Choropleth(ctx, source.New(), &fakeProvider{}, ChoroplethOptions{Column: "pop"})
	require.ErrorIs(t, err, ErrEmptySource)

	_, err = Choropleth(ctx, communes(), &fakeProvider{}, ChoroplethOptions{Column: "pop", Palette: "nope"})
	require.ErrorIs(t, err, classify.ErrUnknownPalette)

	mixed := source.New(
		feature(square(0, 0, 1), map[string]any{"k": "a"}),
		feature(square(1, 0, 1), map[string]any{"k": 2.0}),
	)
	_, err = Choropleth(ctx, mixed, &fakeProvider{}, ChoroplethOptions{Column: "k", Scheme: Categorical})
	require.ErrorIs(t, err, classify.ErrMixedCategories)

	boom := errors.New("tile server down")
	_, err = Choropleth(ctx, communes(), &fakeProvider{err: boom}, ChoroplethOptions{Column: "pop"})
	require.ErrorIs(t, err, boom)

	_, err = Choropleth(ctx, communes(), nil, ChoroplethOptions{Column: "pop"})
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestChoroplethDegenerate(t *testing.T) {
	ctx := context.Background()

	bound := orb.Bound{Min: orb.Point{-70.7, -33.5}, Max: orb.Point{-70.6, -33.4}}
	fig, err := Choropleth(ctx, source.New(), &fakeProvider{}, ChoroplethOptions{
		Column: "pop", MapOptions: MapOptions{Bound: &bound},
	})
	require.NoError(t, err)
	require.Empty(t, fig.Layers())
	require.Nil(t, fig.Colorbar())

	allNull := source.New(feature(square(0, 0, 1), map[string]any{"pop": nil}))
	fig, err = Choropleth(ctx, allNull, &fakeProvider{}, ChoroplethOptions{Column: "pop"})
	require.NoError(t, err)
	require.Empty(t, fig.Layers())
	require.Nil(t, fig.Colorbar())
	require.Nil(t, fig.Legend())

	single := source.New(
		feature(square(0, 0, 1), map[string]any{"pop": 4.0}),
		feature(square(1, 0, 1), map[string]any{"pop": 4.0}),
	)
	fig, err = Choropleth(ctx, single, &fakeProvider{}, ChoroplethOptions{Column: "pop", NColors: 5})
	require.NoError(t, err)
	require.Equal(t, 1, fig.Colorbar().Bins.Len())
}

func TestMarkersSizeColumn(t *testing.T) {
	fig, err := Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{Column: "riders"})
	require.NoError(t, err)

	layers := fig.Layers()
	require.Len(t, layers, 1)
	require.Equal(t, MarkerZ, layers[0].Z)

	var sizes []float64
	for _, it := range layers[0].Items {
		sizes = append(sizes, it.Style.Size)
		require.Equal(t, classify.MustColor(DefaultMarkerColor), it.Style.Fill)
	}
	require.Equal(t, []float64{1, 15.5, 30}, sizes)
}

func TestMarkersFixedSize(t *testing.T) {
	fig, err := Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{Color: "#ff0000"})
	require.NoError(t, err)
	for _, it := range fig.Layers()[0].Items {
		require.Equal(t, float64(DefaultMarkerSize), it.Style.Size)
		require.Equal(t, color.NRGBA{R: 255, A: 255}, it.Style.Fill)
	}

	_, err = Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{Color: "not-a-color"})
	require.Error(t, err)
}

func TestMarkersCategorical(t *testing.T) {
	fig, err := Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{
		Column: "line", Scheme: Categorical, SizeColumn: "riders",
	})
	require.NoError(t, err)

	legend := fig.Legend()
	require.Len(t, legend, 2)
	require.True(t, legend[0].Marker)
	require.Equal(t, "L1", legend[0].Label)

	items := fig.Layers()[0].Items
	require.Equal(t, items[0].Style.Fill, items[2].Style.Fill)
	require.Equal(t, legend[1].Color, items[1].Style.Fill)
	require.Equal(t, 30.0, items[2].Style.Size)
}

func TestMarkersNaturalBreaks(t *testing.T) {
	fig, err := Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{
		Column: "delta", Scheme: FisherJenks, NColors: 2, MinSize: 10, MaxSize: 20,
	})
	require.NoError(t, err)
	require.NotNil(t, fig.Colorbar())

	items := fig.Layers()[0].Items
	require.InDelta(t, 13.333, items[0].Style.Size, 1e-3)
	require.Equal(t, 10.0, items[1].Style.Size)
	require.Equal(t, 20.0, items[2].Style.Size)
}

func TestInfiniteValuesAreMissing(t *testing.T) {
	src := source.New(
		feature(orb.Point{-70.65, -33.44}, map[string]any{"pop": 1.0}),
		feature(orb.Point{-70.64, -33.45}, map[string]any{"pop": math.Inf(1)}),
		feature(orb.Point{-70.63, -33.46}, map[string]any{"pop": 5.0}),
	)
	fig, err := Markers(context.Background(), src, &fakeProvider{}, MarkerOptions{
		Column: "pop", Scheme: FisherJenks, MinSize: 10, MaxSize: 20,
	})
	require.NoError(t, err)
	items := fig.Layers()[0].Items
	require.Len(t, items, 3)
	require.Nil(t, items[1].Style.Fill)
	require.Equal(t, 10.0, items[1].Style.Size)
	require.Equal(t, 20.0, items[2].Style.Size)

	polys := source.New(
		feature(square(-70.70, -33.50, 0.02), map[string]any{"pop": math.Inf(-1)}),
		feature(square(-70.66, -33.50, 0.02), map[string]any{"pop": 2.0}),
		feature(square(-70.62, -33.50, 0.02), map[string]any{"pop": 8.0}),
	)
	fig, err = Choropleth(context.Background(), polys, &fakeProvider{}, ChoroplethOptions{Column: "pop", NColors: 2})
	require.NoError(t, err)
	breaks := fig.Colorbar().Bins.Breaks
	require.Equal(t, 2.0, breaks[0])
	for _, b := range breaks {
		require.False(t, math.IsInf(b, 0))
	}
	require.Nil(t, fig.Layers()[0].Items[0].Style.Fill)
}

func TestMarkersAtPolygonCentroids(t *testing.T) {
	fig, err := Markers(context.Background(), communes(), &fakeProvider{}, MarkerOptions{})
	require.NoError(t, err)
	items := fig.Layers()[0].Items
	require.Len(t, items, 5)
	for _, it := range items {
		require.Equal(t, project.Point, it.Geometry.Kind)
	}
}

func TestMarkersEmptySource(t *testing.T) {
	_, err := Markers(context.Background(), source.New(), &fakeProvider{}, MarkerOptions{})
	require.ErrorIs(t, err, ErrEmptySource)
}

func TestPlotLines(t *testing.T) {
	routes := source.New(
		feature(orb.LineString{{-70.65, -33.44}, {-70.63, -33.46}}, map[string]any{"c": "red"}),
		feature(orb.LineString{{-70.64, -33.44}, {-70.62, -33.45}}, map[string]any{"c": nil}),
		feature(orb.Point{-70.6, -33.4}, map[string]any{"c": "blue"}),
	)
	fig, err := Markers(context.Background(), stops(), &fakeProvider{}, MarkerOptions{})
	require.NoError(t, err)

	require.NoError(t, PlotLines(fig, routes, LineOptions{ColorColumn: "c", LineWidth: 2, Z: 5}))
	layers := fig.Layers()
	require.Len(t, layers, 2)
	require.Equal(t, 5, layers[0].Z)

	lines := layers[0].Items
	require.Len(t, lines, 2)
	require.Equal(t, classify.MustColor("red"), lines[0].Style.Stroke)
	require.Equal(t, classify.MustColor(DefaultLineColor), lines[1].Style.Stroke)
	require.Equal(t, 2.0, lines[0].Style.LineWidth)

	bad := source.New(feature(orb.LineString{{0, 0}, {1, 1}}, map[string]any{"c": "mauve-ish"}))
	require.Error(t, PlotLines(fig, bad, LineOptions{ColorColumn: "c"}))
	require.ErrorIs(t, PlotLines(fig, routes, LineOptions{ColorColumn: "nope"}), ErrMissingColumn)
}

func TestBasemapOnly(t *testing.T) {
	p := &fakeProvider{}
	fig, err := Basemap(context.Background(), stops(), p, MapOptions{Zoom: 10})
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)
	require.Empty(t, fig.Layers())

	_, err = Basemap(context.Background(), stops(), nil, MapOptions{})
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestMarkersLayers(t *testing.T) {
	ctx := context.Background()

	fig, err := MarkersLayers(ctx, stops(), nil, &fakeProvider{}, MarkersLayersOptions{})
	require.NoError(t, err)
	layers := fig.Layers()
	require.Len(t, layers, 1)
	require.Equal(t, MarkerZ, layers[0].Z)

	network := source.New(
		feature(orb.LineString{{-70.66, -33.44}, {-70.62, -33.47}}, nil),
		feature(orb.Point{-70.6, -33.4}, nil),
		feature(square(-70.7, -33.5, 0.01), nil),
	)
	fig, err = MarkersLayers(ctx, stops(), network, &fakeProvider{}, MarkersLayersOptions{
		Markers: MarkerOptions{Column: "riders"},
		Lines:   LineOptions{LineWidth: 3},
	})
	require.NoError(t, err)
	layers = fig.Layers()
	require.Len(t, layers, 2)
	require.Equal(t, LineZ, layers[0].Z)
	require.Equal(t, MarkerZ, layers[1].Z)
	require.Len(t, layers[0].Items, 1)
	require.Len(t, layers[1].Items, 3)
}

func TestRenderedFigureHasOverlays(t *testing.T) {
	fig, err := Choropleth(context.Background(), communes(), &fakeProvider{}, ChoroplethOptions{
		Column: "pop", Colorbar: render.NoColorbar, MapOptions: MapOptions{Width: 300},
	})
	require.NoError(t, err)
	require.Nil(t, fig.Colorbar())
	require.Equal(t, 300, fig.Width)
	require.NotNil(t, fig.Image())
}

func TestParseScheme(t *testing.T) {
	for in, want := range map[string]Scheme{
		"":               NoScheme,
		"none":           NoScheme,
		"fisher_jenks":   FisherJenks,
		"natural-breaks": FisherJenks,
		"Categorical":    Categorical,
	} {
		got, err := ParseScheme(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := ParseScheme("quantiles")
	require.ErrorIs(t, err, ErrScheme)
}
