// Package service contains the business logic behind the carto server and CLI:
// stored map documents, source files, basemap archives and rendering.
package service

import "errors"

var (
	// ErrNotFound is returned for unknown maps, sources and archives.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a map whose ID is taken.
	ErrExists = errors.New("already exists")
	// ErrBadName is returned for file names escaping their directory.
	ErrBadName = errors.New("invalid file name")
	// ErrNoDatabase is returned for query sources when DuckDB is unavailable.
	ErrNoDatabase = errors.New("database not available")
	// ErrUnsupported is returned for source files no reader handles.
	ErrUnsupported = errors.New("unsupported source type")
)

// SourceFile represents a source data file (GeoJSON, CSV, GeoParquet).
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"communes.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON" enum:"GeoJSON,CSV,GeoParquet"`
}

// TileFile represents a raster PMTiles basemap archive.
type TileFile struct {
	Name     string `json:"name" doc:"PMTiles file name" example:"santiago.pmtiles"`
	Size     string `json:"size" doc:"Human-readable file size" example:"5.4 MB"`
	TileType string `json:"tileType,omitempty" doc:"Tile image format" example:"png"`
	MinZoom  int    `json:"minZoom" doc:"Lowest zoom in the archive" example:"10"`
	MaxZoom  int    `json:"maxZoom" doc:"Highest zoom in the archive" example:"14"`
}

// PackOptions describe a basemap archive to build from a tile server.
type PackOptions struct {
	OutputName string    `json:"outputName" required:"true" doc:"Output PMTiles name" example:"santiago"`
	URL        string    `json:"url,omitempty" doc:"XYZ tile URL template; empty uses the server default"`
	Bound      []float64 `json:"bound" required:"true" minItems:"4" maxItems:"4" doc:"min lon, min lat, max lon, max lat"`
	MinZoom    int       `json:"minZoom,omitempty" minimum:"0" maximum:"19" doc:"Minimum zoom level"`
	MaxZoom    int       `json:"maxZoom,omitempty" minimum:"0" maximum:"19" doc:"Maximum zoom level" example:"14"`
	MaxTiles   int       `json:"maxTiles,omitempty" minimum:"0" doc:"Refuse archives with more tiles than this"`
}
