package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-carto/pkg/carto"
	"github.com/joeblew999/plat-carto/pkg/render"
)

const choroplethDoc = `
id: santiago
name: Santiago population
source:
  file: communes.geojson
column: population
scheme: fisher_jenks
nColors: 7
palette: YlOrRd
alpha: 0.6
colorbar: horizontal
zoom: 11
margin: 0.05
bound: [-70.8, -33.6, -70.5, -33.3]
basemap:
  archive: santiago.pmtiles
width: 800
format: jpeg
`

func TestParseChoropleth(t *testing.T) {
	spec, err := Parse([]byte(choroplethDoc))
	require.NoError(t, err)
	require.Equal(t, ModeChoropleth, spec.Mode)
	require.Equal(t, "communes.geojson", spec.Source.File)
	require.Equal(t, "santiago.pmtiles", spec.Basemap.Archive)
	require.Equal(t, render.JPEG, spec.OutputFormat())

	opts := spec.ChoroplethOptions()
	require.Equal(t, carto.FisherJenks, opts.Scheme)
	require.Equal(t, 7, opts.NColors)
	require.Equal(t, 0.6, opts.Alpha)
	require.Equal(t, render.Horizontal, opts.Colorbar)
	require.Equal(t, 11, opts.Zoom)
	require.Equal(t, 800, opts.Width)
	require.NotNil(t, opts.Bound)
	require.Equal(t, -70.8, opts.Bound.Min.X())
	require.Equal(t, -33.3, opts.Bound.Max.Y())
}

func TestParseJSON(t *testing.T) {
	spec, err := Parse([]byte(`{"mode": "markers", "source": {"query": "SELECT * FROM stops", "geometryColumn": "geom"}, "column": "riders"}`))
	require.NoError(t, err)
	require.Equal(t, "geom", spec.Source.GeometryColumn)

	opts := spec.MarkerOptions()
	require.Equal(t, carto.NoScheme, opts.Scheme)
	require.Equal(t, "riders", opts.Column)
	require.Nil(t, opts.Bound)
	require.Equal(t, render.PNG, spec.OutputFormat())
}

func TestLineOptions(t *testing.T) {
	spec := &MapSpec{Mode: ModeLines, Source: SourceRef{File: "routes.geojson"}, Color: "red", LineWidth: 2}
	require.NoError(t, spec.Validate())
	lo := spec.LineOptions()
	require.Equal(t, "red", lo.Color)
	require.Equal(t, carto.LineZ, lo.Z)
	require.Equal(t, 2.0, lo.LineWidth)

	spec = &MapSpec{
		Mode:   ModeMarkersLayers,
		Source: SourceRef{File: "stops.csv"},
		Layer:  &SourceRef{File: "routes.geojson"},
		Color:  "red",
	}
	require.NoError(t, spec.Validate())
	require.Empty(t, spec.LineOptions().Color, "marker color does not leak onto lines")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		spec MapSpec
	}{
		{"choropleth without column", MapSpec{Source: SourceRef{File: "a.geojson"}}},
		{"unknown mode", MapSpec{Mode: "heatmap", Source: SourceRef{File: "a.geojson"}}},
		{"no source", MapSpec{Mode: ModeMarkers}},
		{"file and query", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv", Query: "SELECT 1"}}},
		{"layer outside markers-layers", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Layer: &SourceRef{File: "b.geojson"}}},
		{"empty layer", MapSpec{Mode: ModeMarkersLayers, Source: SourceRef{File: "a.csv"}, Layer: &SourceRef{}}},
		{"unknown scheme", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Scheme: "quantiles"}},
		{"unknown colorbar", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Colorbar: "diagonal"}},
		{"unknown format", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Format: "gif"}},
		{"short bound", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Bound: []float64{0, 0, 1}}},
		{"inverted bound", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Bound: []float64{1, 1, 0, 0}}},
		{"alpha above one", MapSpec{Mode: ModeMarkers, Source: SourceRef{File: "a.csv"}, Alpha: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.spec.Validate(), ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(choroplethDoc), 0o644))

	spec, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "santiago", spec.ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mode: markers\n"), 0o644))
	_, err = Load(bad)
	require.ErrorIs(t, err, ErrInvalid)
}
