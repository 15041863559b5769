package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-carto/pkg/basemap"
)

// TileService manages raster PMTiles basemap archives.
type TileService struct {
	tilesDir string
}

// NewTileService creates a new tile service.
func NewTileService(dataDir string) *TileService {
	return &TileService{
		tilesDir: filepath.Join(dataDir, "tiles"),
	}
}

// List returns all available PMTiles files. Archives that fail to open are
// listed without zoom information.
func (s *TileService) List() ([]TileFile, error) {
	entries, err := os.ReadDir(s.tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TileFile{}, nil
		}
		return nil, err
	}

	files := []TileFile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pmtiles" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, describe(filepath.Join(s.tilesDir, entry.Name()), info.Size()))
	}
	return files, nil
}

func describe(path string, size int64) TileFile {
	tf := TileFile{Name: filepath.Base(path), Size: formatSize(size)}
	a, err := basemap.OpenArchive(path)
	if err != nil {
		log.Printf("op=tiles.describe file=%s err=%v", tf.Name, err)
		return tf
	}
	defer a.Close()
	tf.MinZoom, tf.MaxZoom = a.ZoomRange()
	tf.TileType = a.TileType()
	return tf
}

// Open opens the named archive. The caller closes it.
func (s *TileService) Open(name string) (*basemap.Archive, error) {
	path, err := within(s.tilesDir, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("archive %q: %w", name, ErrNotFound)
	}
	return basemap.OpenArchive(path)
}

// ProgressFunc is called with progress updates while an archive is packed.
type ProgressFunc func(progress int, status string)

// Pack downloads the tiles covering opts.Bound from a tile server into a new
// archive in the tiles directory and returns its listing.
func (s *TileService) Pack(ctx context.Context, opts PackOptions, onProgress ProgressFunc) (TileFile, error) {
	if len(opts.Bound) != 4 {
		return TileFile{}, fmt.Errorf("%w: bound needs 4 numbers", basemap.ErrInvalidBound)
	}
	if !strings.HasSuffix(opts.OutputName, ".pmtiles") {
		opts.OutputName += ".pmtiles"
	}
	outputPath, err := within(s.tilesDir, opts.OutputName)
	if err != nil {
		return TileFile{}, err
	}
	if opts.MinZoom == 0 && opts.MaxZoom == 0 {
		opts.MaxZoom = basemap.DefaultZoom
	}
	if err := os.MkdirAll(s.tilesDir, 0755); err != nil {
		return TileFile{}, fmt.Errorf("failed to create tiles directory: %w", err)
	}

	if onProgress != nil {
		onProgress(10, "Fetching tiles...")
	}

	tmp := outputPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return TileFile{}, err
	}
	bound := orb.Bound{
		Min: orb.Point{opts.Bound[0], opts.Bound[1]},
		Max: orb.Point{opts.Bound[2], opts.Bound[3]},
	}
	n, err := basemap.Pack(ctx, basemap.NewTileServer(opts.URL), bound, f, basemap.PackOptions{
		MinZoom:  opts.MinZoom,
		MaxZoom:  opts.MaxZoom,
		MaxTiles: opts.MaxTiles,
		Name:     strings.TrimSuffix(opts.OutputName, ".pmtiles"),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return TileFile{}, fmt.Errorf("packing %s: %w", opts.OutputName, err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return TileFile{}, err
	}

	if onProgress != nil {
		onProgress(100, fmt.Sprintf("Packed %d tiles", n))
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return TileFile{}, err
	}
	return describe(outputPath, info.Size()), nil
}

// TilesDir returns the path to the tiles directory.
func (s *TileService) TilesDir() string {
	return s.tilesDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
