// Package source holds the tabular geometry collections maps are drawn from.
//
// A Collection is an ordered list of features, each one geometry plus a
// property row. Readers exist for GeoJSON and CSV; internal/db builds
// collections from DuckDB spatial queries.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoColumn is returned when a requested attribute column is absent from every feature.
var ErrNoColumn = errors.New("source: column not found")

// Feature is one row of a collection.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// Collection is an ordered set of features.
type Collection struct {
	Features []Feature
}

// New creates a collection from features.
func New(features ...Feature) *Collection {
	return &Collection{Features: features}
}

// FromFeatureCollection converts a GeoJSON feature collection, keeping feature order.
func FromFeatureCollection(fc *geojson.FeatureCollection) *Collection {
	c := &Collection{Features: make([]Feature, 0, len(fc.Features))}
	for _, f := range fc.Features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		c.Features = append(c.Features, Feature{Geometry: f.Geometry, Properties: props})
	}
	return c
}

// ReadGeoJSON decodes a GeoJSON FeatureCollection.
func ReadGeoJSON(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}
	return FromFeatureCollection(fc), nil
}

// LoadGeoJSON reads a GeoJSON file from disk.
func LoadGeoJSON(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGeoJSON(f)
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Bound returns the total extent of all non-empty geometries.
// The second result is false when no feature has coordinates.
func (c *Collection) Bound() (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	if c == nil {
		return b, false
	}
	for _, f := range c.Features {
		if Empty(f.Geometry) {
			continue
		}
		gb := f.Geometry.Bound()
		if !found {
			b, found = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, found
}

// HasColumn reports whether any feature carries the named property.
func (c *Collection) HasColumn(name string) bool {
	if c == nil {
		return false
	}
	for _, f := range c.Features {
		if _, ok := f.Properties[name]; ok {
			return true
		}
	}
	return false
}

// Column returns the named property for every feature, in feature order.
// Features without the property contribute nil.
func (c *Collection) Column(name string) ([]any, error) {
	if c.Len() > 0 && !c.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]any, c.Len())
	for i, f := range c.Features {
		out[i] = f.Properties[name]
	}
	return out, nil
}

// Filter returns a new collection with the features keep accepts.
func (c *Collection) Filter(keep func(Feature) bool) *Collection {
	out := &Collection{}
	if c == nil {
		return out
	}
	for _, f := range c.Features {
		if keep(f) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// LineStrings returns the features whose geometry is a single LineString.
func (c *Collection) LineStrings() *Collection {
	return c.Filter(func(f Feature) bool {
		_, ok := f.Geometry.(orb.LineString)
		return ok
	})
}

// Empty reports whether g has no coordinates.
func Empty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		for _, p := range g {
			if !Empty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, sub := range g {
			if !Empty(sub) {
				return false
			}
		}
		return true
	case orb.Bound:
		return false
	default:
		return true
	}
}
