// Package project converts geographic geometries into raster pixel space.
package project

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// Kind is the drawable shape of a pixel geometry.
type Kind int

const (
	Point Kind = iota
	Line
	Polygon
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Line:
		return "line"
	case Polygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Pixel is a position in raster pixels, origin top-left.
type Pixel struct {
	X, Y float64
}

// PixelGeometry is one drawable shape in pixel space.
//
// A Point has one ring of one pixel, a Line one ring of its vertices and a
// Polygon its exterior ring followed by any holes. Feature is the index of
// the source row the shape came from.
type PixelGeometry struct {
	Kind    Kind
	Rings   [][]Pixel
	Feature int
}

// Empty reports whether the geometry has nothing to draw.
func (g PixelGeometry) Empty() bool {
	return len(g.Rings) == 0 || len(g.Rings[0]) == 0
}

// Len returns the total number of pixels over all rings.
func (g PixelGeometry) Len() int {
	n := 0
	for _, r := range g.Rings {
		n += len(r)
	}
	return n
}

// Project maps g through to. MultiPolygons yield one Polygon per member,
// all tagged with feature. Other geometry types yield nil.
func Project(g orb.Geometry, feature int, to basemap.PixelFunc) []PixelGeometry {
	switch g := g.(type) {
	case orb.Point:
		return []PixelGeometry{{Kind: Point, Rings: [][]Pixel{{pixel(g, to)}}, Feature: feature}}
	case orb.LineString:
		return []PixelGeometry{{Kind: Line, Rings: [][]Pixel{ring(g, to)}, Feature: feature}}
	case orb.Polygon:
		return []PixelGeometry{polygon(g, feature, to)}
	case orb.MultiPolygon:
		out := make([]PixelGeometry, 0, len(g))
		for _, p := range g {
			out = append(out, polygon(p, feature, to))
		}
		return out
	default:
		return nil
	}
}

// Options tunes Collection.
type Options struct {
	// Tolerance simplifies lines and polygons with Douglas-Peucker, in
	// degrees, before projection. Zero keeps every vertex.
	Tolerance float64
	// Centroids replaces polygons by a point at their area centroid.
	Centroids bool
}

// Collection projects every feature of c in source order.
func Collection(c *source.Collection, to basemap.PixelFunc, opts Options) []PixelGeometry {
	var out []PixelGeometry
	if c == nil {
		return out
	}
	for i, f := range c.Features {
		g := f.Geometry
		if opts.Centroids {
			g = centroid(g)
		}
		if opts.Tolerance > 0 {
			g = Simplify(g, opts.Tolerance)
		}
		out = append(out, Project(g, i, to)...)
	}
	return out
}

// Simplify returns a simplified copy of g; g itself is left untouched.
func Simplify(g orb.Geometry, tolerance float64) orb.Geometry {
	switch g.(type) {
	case orb.LineString, orb.Polygon, orb.MultiPolygon:
		return simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(g))
	default:
		return g
	}
}

func centroid(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		if source.Empty(g) {
			return g
		}
		c, _ := planar.CentroidArea(g)
		return c
	default:
		return g
	}
}

func polygon(p orb.Polygon, feature int, to basemap.PixelFunc) PixelGeometry {
	rings := make([][]Pixel, 0, len(p))
	for _, r := range p {
		rings = append(rings, ring(orb.LineString(r), to))
	}
	return PixelGeometry{Kind: Polygon, Rings: rings, Feature: feature}
}

func ring(ls orb.LineString, to basemap.PixelFunc) []Pixel {
	out := make([]Pixel, len(ls))
	for i, p := range ls {
		out[i] = pixel(p, to)
	}
	return out
}

func pixel(p orb.Point, to basemap.PixelFunc) Pixel {
	x, y := to(p.Lat(), p.Lon())
	return Pixel{X: x, Y: y}
}
