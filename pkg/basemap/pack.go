package basemap

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-carto/internal/pmtiles"
)

// PackOptions configures Pack.
type PackOptions struct {
	MinZoom int
	MaxZoom int
	// MaxTiles aborts the pack when the zoom range covers more tiles.
	MaxTiles int
	Name     string
}

// Pack downloads every tile of bound over a zoom range from s and writes
// them to w as a PMTiles archive usable by OpenArchive.
func Pack(ctx context.Context, s *TileServer, bound orb.Bound, w io.Writer, opts PackOptions) (int, error) {
	if err := Validate(bound); err != nil {
		return 0, err
	}
	if opts.MinZoom < 0 || opts.MaxZoom > MaxZoom || opts.MinZoom > opts.MaxZoom {
		return 0, fmt.Errorf("%w: zoom %d-%d", ErrPackRange, opts.MinZoom, opts.MaxZoom)
	}

	var boxes []TileBox
	total := 0
	for z := opts.MinZoom; z <= opts.MaxZoom; z++ {
		box := TilesInBound(bound, maptile.Zoom(z))
		boxes = append(boxes, box)
		total += box.Count()
	}
	if opts.MaxTiles > 0 && total > opts.MaxTiles {
		return 0, fmt.Errorf("%w: needs %d tiles, limit is %d", ErrPackRange, total, opts.MaxTiles)
	}

	var (
		tiles    []pmtiles.Tile
		tileType pmtiles.TileType
	)
	for _, box := range boxes {
		for _, t := range box.Tiles() {
			data, err := s.Tile(ctx, t)
			if err != nil {
				return 0, err
			}
			if tileType == pmtiles.UnknownTileType {
				tileType = detectTileType(data)
			}
			tiles = append(tiles, pmtiles.Tile{Z: uint8(t.Z), X: t.X, Y: t.Y, Data: data})
		}
		log.Printf("op=basemap.pack zoom=%d tiles=%d", box.Zoom, box.Count())
	}

	name := opts.Name
	if name == "" {
		name = "basemap"
	}
	err := pmtiles.Write(w, tiles, pmtiles.WriteOptions{
		TileType: tileType,
		MinZoom:  uint8(opts.MinZoom),
		MaxZoom:  uint8(opts.MaxZoom),
		Bounds:   [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		Metadata: map[string]any{
			"name":   name,
			"type":   "baselayer",
			"source": s.URL,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("writing archive: %w", err)
	}
	return len(tiles), nil
}

func detectTileType(data []byte) pmtiles.TileType {
	switch http.DetectContentType(data) {
	case "image/png":
		return pmtiles.Png
	case "image/jpeg":
		return pmtiles.Jpeg
	case "image/webp":
		return pmtiles.Webp
	default:
		return pmtiles.UnknownTileType
	}
}
