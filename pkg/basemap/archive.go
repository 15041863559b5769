package basemap

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-carto/internal/pmtiles"
)

// Archive serves basemaps from a local PMTiles archive of raster tiles.
// Tiles missing from the archive are left blank.
type Archive struct {
	f        *os.File
	r        *pmtiles.Reader
	MaxTiles int
}

// OpenArchive opens a raster PMTiles file.
func OpenArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := pmtiles.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if r.Header.TileType == pmtiles.Mvt {
		f.Close()
		return nil, fmt.Errorf("opening archive %s: vector tiles cannot be used as a basemap", path)
	}
	return &Archive{f: f, r: r, MaxTiles: DefaultMaxTiles}, nil
}

// Close releases the archive file.
func (a *Archive) Close() error {
	return a.f.Close()
}

// ZoomRange returns the zoom levels present in the archive.
func (a *Archive) ZoomRange() (minZoom, maxZoom int) {
	return int(a.r.Header.MinZoom), int(a.r.Header.MaxZoom)
}

// TileType returns the image format of the archive's tiles.
func (a *Archive) TileType() string {
	return a.r.Header.TileType.String()
}

// Metadata returns the archive's JSON metadata.
func (a *Archive) Metadata() map[string]any {
	return a.r.Metadata
}

// Fetch implements Provider. The zoom is clamped to the archive's range.
func (a *Archive) Fetch(ctx context.Context, bound orb.Bound, zoom int, margin float64) (*Map, error) {
	if err := Validate(bound); err != nil {
		return nil, err
	}
	minZ, maxZ := a.ZoomRange()
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	if zoom > maxZ {
		zoom = maxZ
	}
	if zoom < minZ {
		zoom = minZ
	}

	bound = Pad(bound, margin)
	box := ChooseZoom(bound, zoom, a.MaxTiles)
	if int(box.Zoom) < minZ {
		box = TilesInBound(bound, maptile.Zoom(minZ))
	}

	img, err := Stitch(ctx, box, func(_ context.Context, t maptile.Tile) (image.Image, error) {
		data, ok, err := a.r.Tile(uint8(t.Z), t.X, t.Y)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return DecodeTile(data)
	})
	if err != nil {
		return nil, err
	}
	return &Map{Image: img, Zoom: box.Zoom, Bound: bound, Box: box}, nil
}

var _ Provider = (*Archive)(nil)
