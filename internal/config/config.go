// Package config defines map documents: a source, a drawing mode and the
// options of that mode, loadable from YAML (or JSON) files.
//
// The same struct is the request body of the HTTP render endpoints, so its
// tags drive both YAML decoding and the OpenAPI schema.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/carto"
	"github.com/joeblew999/plat-carto/pkg/render"
)

// Drawing modes.
const (
	ModeChoropleth    = "choropleth"
	ModeMarkers       = "markers"
	ModeLines         = "lines"
	ModeMarkersLayers = "markers-layers"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid map spec")

// MapSpec describes one map.
type MapSpec struct {
	ID     string     `json:"id,omitempty" yaml:"id,omitempty" doc:"Unique map identifier" example:"santiago_population"`
	Name   string     `json:"name,omitempty" yaml:"name,omitempty" maxLength:"100" doc:"Display name" example:"Santiago population"`
	Mode   string     `json:"mode,omitempty" yaml:"mode,omitempty" enum:"choropleth,markers,lines,markers-layers" default:"choropleth" doc:"Drawing mode"`
	Source SourceRef  `json:"source" yaml:"source" doc:"Rows to draw"`
	Layer  *SourceRef `json:"layer,omitempty" yaml:"layer,omitempty" doc:"Line layer drawn under markers (markers-layers mode)"`

	Column     string  `json:"column,omitempty" yaml:"column,omitempty" doc:"Attribute column to classify" example:"population"`
	Scheme     string  `json:"scheme,omitempty" yaml:"scheme,omitempty" doc:"fisher_jenks, categorical or none" example:"fisher_jenks"`
	NColors    int     `json:"nColors,omitempty" yaml:"nColors,omitempty" minimum:"0" maximum:"12" doc:"Natural-breaks class count" example:"5"`
	Palette    string  `json:"palette,omitempty" yaml:"palette,omitempty" doc:"ColorBrewer or Moreland palette name" example:"YlGnBu"`
	Alpha      float64 `json:"alpha,omitempty" yaml:"alpha,omitempty" minimum:"0" maximum:"1" doc:"Overlay opacity" example:"0.75"`
	Colorbar   string  `json:"colorbar,omitempty" yaml:"colorbar,omitempty" enum:"vertical,horizontal,none" doc:"Colorbar orientation"`
	SizeColumn string  `json:"sizeColumn,omitempty" yaml:"sizeColumn,omitempty" doc:"Column sizing categorical markers"`
	MinSize    float64 `json:"minSize,omitempty" yaml:"minSize,omitempty" minimum:"0" doc:"Smallest marker area (px²)"`
	MaxSize    float64 `json:"maxSize,omitempty" yaml:"maxSize,omitempty" minimum:"0" doc:"Largest marker area (px²)"`
	Size       float64 `json:"size,omitempty" yaml:"size,omitempty" minimum:"0" doc:"Unscaled marker area (px²)"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty" doc:"Marker or line color" example:"purple"`

	LineWidth   float64 `json:"lineWidth,omitempty" yaml:"lineWidth,omitempty" minimum:"0" doc:"Line width (px)"`
	ColorColumn string  `json:"colorColumn,omitempty" yaml:"colorColumn,omitempty" doc:"Column holding a color per line"`
	LineAlpha   float64 `json:"lineAlpha,omitempty" yaml:"lineAlpha,omitempty" minimum:"0" maximum:"1" doc:"Line opacity"`

	Zoom     int       `json:"zoom,omitempty" yaml:"zoom,omitempty" minimum:"0" maximum:"19" doc:"Requested tile zoom" example:"12"`
	Margin   float64   `json:"margin,omitempty" yaml:"margin,omitempty" minimum:"0" doc:"Extent padding as a fraction"`
	Bound    []float64 `json:"bound,omitempty" yaml:"bound,omitempty" minItems:"4" maxItems:"4" doc:"Fixed extent: min lon, min lat, max lon, max lat"`
	Simplify float64   `json:"simplify,omitempty" yaml:"simplify,omitempty" minimum:"0" doc:"Douglas-Peucker tolerance (degrees)"`

	Basemap BasemapSpec `json:"basemap,omitempty" yaml:"basemap,omitempty" doc:"Tile provider"`
	Width   int         `json:"width,omitempty" yaml:"width,omitempty" minimum:"0" maximum:"8192" doc:"Output width (px)" example:"1024"`
	Format  string      `json:"format,omitempty" yaml:"format,omitempty" enum:"png,jpeg,jpg,svg" doc:"Output format"`
}

// SourceRef names the rows of a map: a file in the sources directory or a
// DuckDB query.
type SourceRef struct {
	File           string `json:"file,omitempty" yaml:"file,omitempty" doc:"GeoJSON or CSV file in the sources directory" example:"communes.geojson"`
	Query          string `json:"query,omitempty" yaml:"query,omitempty" doc:"DuckDB query returning a geometry column"`
	GeometryColumn string `json:"geometryColumn,omitempty" yaml:"geometryColumn,omitempty" doc:"Geometry column of the query or WKT column of a CSV" example:"geom"`
}

// BasemapSpec selects the tile provider. An archive takes precedence over a URL.
type BasemapSpec struct {
	URL       string `json:"url,omitempty" yaml:"url,omitempty" doc:"XYZ tile URL template" example:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Archive   string `json:"archive,omitempty" yaml:"archive,omitempty" doc:"PMTiles archive in the tiles directory" example:"santiago.pmtiles"`
	MaxTiles  int    `json:"maxTiles,omitempty" yaml:"maxTiles,omitempty" minimum:"0" doc:"Tile cap before zoom is lowered"`
	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty" doc:"User-Agent sent to the tile server"`
}

// Load reads a map document from a YAML or JSON file.
func Load(path string) (*MapSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a map document.
func Parse(data []byte) (*MapSpec, error) {
	var spec MapSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing map spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the document and fills the default mode.
func (s *MapSpec) Validate() error {
	if s.Mode == "" {
		s.Mode = ModeChoropleth
	}
	switch s.Mode {
	case ModeChoropleth:
		if s.Column == "" {
			return fmt.Errorf("%w: choropleth needs a column", ErrInvalid)
		}
	case ModeMarkers, ModeLines, ModeMarkersLayers:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, s.Mode)
	}

	if err := s.Source.validate("source"); err != nil {
		return err
	}
	if s.Layer != nil {
		if s.Mode != ModeMarkersLayers {
			return fmt.Errorf("%w: layer is only used by %s", ErrInvalid, ModeMarkersLayers)
		}
		if err := s.Layer.validate("layer"); err != nil {
			return err
		}
	}
	if _, err := carto.ParseScheme(s.Scheme); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, ok := render.ParseOrientation(s.Colorbar); !ok {
		return fmt.Errorf("%w: unknown colorbar orientation %q", ErrInvalid, s.Colorbar)
	}
	if _, err := render.ParseFormat(s.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(s.Bound) != 0 {
		if len(s.Bound) != 4 {
			return fmt.Errorf("%w: bound needs 4 numbers, got %d", ErrInvalid, len(s.Bound))
		}
		if err := basemap.Validate(*s.bound()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if s.Alpha < 0 || s.Alpha > 1 || s.LineAlpha < 0 || s.LineAlpha > 1 {
		return fmt.Errorf("%w: alpha must be within [0, 1]", ErrInvalid)
	}
	return nil
}

func (r SourceRef) validate(field string) error {
	switch {
	case r.File == "" && r.Query == "":
		return fmt.Errorf("%w: %s needs a file or a query", ErrInvalid, field)
	case r.File != "" && r.Query != "":
		return fmt.Errorf("%w: %s takes a file or a query, not both", ErrInvalid, field)
	}
	return nil
}

// OutputFormat returns the parsed output format.
func (s *MapSpec) OutputFormat() render.Format {
	f, err := render.ParseFormat(s.Format)
	if err != nil {
		return render.PNG
	}
	return f
}

func (s *MapSpec) bound() *orb.Bound {
	if len(s.Bound) != 4 {
		return nil
	}
	return &orb.Bound{
		Min: orb.Point{s.Bound[0], s.Bound[1]},
		Max: orb.Point{s.Bound[2], s.Bound[3]},
	}
}

// MapOptions returns the basemap framing options.
func (s *MapSpec) MapOptions() carto.MapOptions {
	return carto.MapOptions{
		Zoom:     s.Zoom,
		Margin:   s.Margin,
		Width:    s.Width,
		Bound:    s.bound(),
		Simplify: s.Simplify,
	}
}

func (s *MapSpec) scheme() carto.Scheme {
	sc, _ := carto.ParseScheme(s.Scheme)
	return sc
}

func (s *MapSpec) orientation() render.Orientation {
	o, _ := render.ParseOrientation(s.Colorbar)
	return o
}

// ChoroplethOptions returns the options of choropleth mode.
func (s *MapSpec) ChoroplethOptions() carto.ChoroplethOptions {
	return carto.ChoroplethOptions{
		MapOptions: s.MapOptions(),
		Column:     s.Column,
		Scheme:     s.scheme(),
		NColors:    s.NColors,
		Palette:    s.Palette,
		Alpha:      s.Alpha,
		Colorbar:   s.orientation(),
	}
}

// MarkerOptions returns the options of markers mode.
func (s *MapSpec) MarkerOptions() carto.MarkerOptions {
	return carto.MarkerOptions{
		MapOptions: s.MapOptions(),
		Column:     s.Column,
		Scheme:     s.scheme(),
		SizeColumn: s.SizeColumn,
		Palette:    s.Palette,
		NColors:    s.NColors,
		Alpha:      s.Alpha,
		MinSize:    s.MinSize,
		MaxSize:    s.MaxSize,
		Size:       s.Size,
		Color:      s.Color,
		Colorbar:   s.orientation(),
	}
}

// LineOptions returns the line styling of lines and markers-layers modes.
func (s *MapSpec) LineOptions() carto.LineOptions {
	lo := carto.LineOptions{
		LineWidth:   s.LineWidth,
		ColorColumn: s.ColorColumn,
		Alpha:       s.LineAlpha,
		Simplify:    s.Simplify,
	}
	if s.Mode == ModeLines {
		lo.Color = s.Color
		lo.Z = carto.LineZ
	}
	return lo
}
