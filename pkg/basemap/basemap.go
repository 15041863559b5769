// Package basemap fetches raster basemaps for a geographic extent.
//
// A Provider stitches slippy-map tiles covering a bounding box into one
// image and returns it as a Map, which also knows how to place any
// (lat, lon) pair in that image's pixel space.
package basemap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	_ "golang.org/x/image/webp"
)

const (
	// TileSize is the edge length of a slippy-map tile in pixels.
	TileSize = 256

	// DefaultZoom is used when a fetch asks for zoom 0 or less.
	DefaultZoom = 12

	// DefaultMaxTiles caps the tile count of one basemap; the zoom is
	// lowered until the extent fits.
	DefaultMaxTiles = 16

	// MaxZoom is the deepest zoom a provider is asked for.
	MaxZoom = 19

	maxLat = 85.0511287798
)

var (
	// ErrInvalidBound is returned for extents with min > max or non-finite corners.
	ErrInvalidBound = errors.New("basemap: invalid bounding box")
	// ErrLengthMismatch is returned by ToPixelsSeq for unequal input slices.
	ErrLengthMismatch = errors.New("basemap: lat/lon length mismatch")
	// ErrPackRange is returned for invalid or oversized pack zoom ranges.
	ErrPackRange = errors.New("basemap: invalid pack range")
)

// Provider returns a basemap covering bound at (up to) the requested zoom.
// margin expands the bound by that fraction of its extent on each side.
type Provider interface {
	Fetch(ctx context.Context, bound orb.Bound, zoom int, margin float64) (*Map, error)
}

// PixelFunc maps a geographic coordinate to raster pixel space.
type PixelFunc func(lat, lon float64) (x, y float64)

// Map is a stitched basemap raster.
type Map struct {
	Image image.Image
	Zoom  maptile.Zoom
	// Bound is the extent the map was requested for, after the margin.
	Bound orb.Bound
	// Box is the tile range the raster covers.
	Box TileBox
}

// Width returns the raster width in pixels.
func (m *Map) Width() int { return m.Image.Bounds().Dx() }

// Height returns the raster height in pixels.
func (m *Map) Height() int { return m.Image.Bounds().Dy() }

// ToPixels maps (lat, lon) into the raster's pixel space; the origin is the
// top-left corner of the raster.
func (m *Map) ToPixels(lat, lon float64) (x, y float64) {
	f := maptile.Fraction(orb.Point{lon, lat}, m.Zoom)
	x = (f[0] - float64(m.Box.MinX)) * TileSize
	y = (f[1] - float64(m.Box.MinY)) * TileSize
	return x, y
}

// ToPixelsSeq maps parallel latitude and longitude sequences.
func (m *Map) ToPixelsSeq(lats, lons []float64) (xs, ys []float64, err error) {
	if len(lats) != len(lons) {
		return nil, nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(lats), len(lons))
	}
	xs = make([]float64, len(lats))
	ys = make([]float64, len(lats))
	for i := range lats {
		xs[i], ys[i] = m.ToPixels(lats[i], lons[i])
	}
	return xs, ys, nil
}

// TileBox is an inclusive range of tiles at one zoom.
type TileBox struct {
	Zoom       maptile.Zoom
	MinX, MinY uint32
	MaxX, MaxY uint32
}

// Cols returns the number of tile columns.
func (b TileBox) Cols() int { return int(b.MaxX-b.MinX) + 1 }

// Rows returns the number of tile rows.
func (b TileBox) Rows() int { return int(b.MaxY-b.MinY) + 1 }

// Count returns the number of tiles in the box.
func (b TileBox) Count() int { return b.Cols() * b.Rows() }

// Tiles lists the tiles row by row from the top-left.
func (b TileBox) Tiles() []maptile.Tile {
	tiles := make([]maptile.Tile, 0, b.Count())
	for y := b.MinY; y <= b.MaxY; y++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			tiles = append(tiles, maptile.New(x, y, b.Zoom))
		}
	}
	return tiles
}

// TilesInBound returns the box of tiles at zoom that cover bound.
func TilesInBound(bound orb.Bound, zoom maptile.Zoom) TileBox {
	minTile := maptile.At(orb.Point{bound.Min[0], clampLat(bound.Max[1])}, zoom)
	maxTile := maptile.At(orb.Point{bound.Max[0], clampLat(bound.Min[1])}, zoom)

	minX, maxX := minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return TileBox{Zoom: zoom, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// ChooseZoom lowers zoom until the tile box of bound holds at most maxTiles tiles.
func ChooseZoom(bound orb.Bound, zoom, maxTiles int) TileBox {
	if zoom < 0 {
		zoom = 0
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	if maxTiles <= 0 {
		maxTiles = DefaultMaxTiles
	}
	box := TilesInBound(bound, maptile.Zoom(zoom))
	for box.Count() > maxTiles && zoom > 0 {
		zoom--
		box = TilesInBound(bound, maptile.Zoom(zoom))
	}
	return box
}

// Pad expands bound by margin times its extent on every side.
func Pad(bound orb.Bound, margin float64) orb.Bound {
	if margin <= 0 {
		return bound
	}
	dx := (bound.Max[0] - bound.Min[0]) * margin
	dy := (bound.Max[1] - bound.Min[1]) * margin
	return orb.Bound{
		Min: orb.Point{math.Max(bound.Min[0]-dx, -180), clampLat(bound.Min[1] - dy)},
		Max: orb.Point{math.Min(bound.Max[0]+dx, 180), clampLat(bound.Max[1] + dy)},
	}
}

// Validate checks that bound is finite and ordered.
func Validate(bound orb.Bound) error {
	for _, v := range []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite corner", ErrInvalidBound)
		}
	}
	if bound.Min[0] > bound.Max[0] || bound.Min[1] > bound.Max[1] {
		return fmt.Errorf("%w: min %v > max %v", ErrInvalidBound, bound.Min, bound.Max)
	}
	return nil
}

// TileFetcher returns the image of one tile. A nil image with a nil error
// leaves the tile blank.
type TileFetcher func(ctx context.Context, t maptile.Tile) (image.Image, error)

// Stitch fetches every tile of box in turn and composes them into one raster.
func Stitch(ctx context.Context, box TileBox, fetch TileFetcher) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, box.Cols()*TileSize, box.Rows()*TileSize))
	for _, t := range box.Tiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := fetch(ctx, t)
		if err != nil {
			return nil, err
		}
		if img == nil {
			continue
		}
		off := image.Pt(int(t.X-box.MinX)*TileSize, int(t.Y-box.MinY)*TileSize)
		r := image.Rectangle{Min: off, Max: off.Add(image.Pt(TileSize, TileSize))}
		draw.Draw(dst, r, img, img.Bounds().Min, draw.Src)
	}
	return dst, nil
}

// DecodeTile decodes a PNG, JPEG or WebP tile.
func DecodeTile(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding tile: %w", err)
	}
	return img, nil
}

func clampLat(lat float64) float64 {
	return math.Max(-maxLat, math.Min(maxLat, lat))
}
