package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/internal/db"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// Supported source file extensions and their types.
var extToType = map[string]string{
	".geojson":    "GeoJSON",
	".json":       "GeoJSON",
	".csv":        "CSV",
	".parquet":    "GeoParquet",
	".geoparquet": "GeoParquet",
}

// SourceService lists and loads the collections maps are drawn from.
type SourceService struct {
	sourcesDir string
	db         *sql.DB
}

// NewSourceService creates a new source service. conn may be nil, in which
// case query and GeoParquet sources fail with ErrNoDatabase.
func NewSourceService(dataDir string, conn *sql.DB) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		db:         conn,
	}
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	return files, nil
}

// Load reads the collection a source reference names.
func (s *SourceService) Load(ctx context.Context, ref config.SourceRef) (*source.Collection, error) {
	if ref.Query != "" {
		if s.db == nil {
			return nil, ErrNoDatabase
		}
		return db.LoadCollection(ctx, s.db, ref.Query, ref.GeometryColumn)
	}

	path, err := s.Path(ref.File)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("source %q: %w", ref.File, ErrNotFound)
	}

	switch extToType[strings.ToLower(filepath.Ext(path))] {
	case "GeoJSON":
		return source.LoadGeoJSON(path)
	case "CSV":
		return source.LoadCSV(path, source.CSVOptions{GeometryColumn: ref.GeometryColumn})
	case "GeoParquet":
		if s.db == nil {
			return nil, ErrNoDatabase
		}
		geom := ref.GeometryColumn
		if geom == "" {
			geom = "geometry"
		}
		table := fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))
		// With the spatial extension loaded the geometry column arrives as
		// GEOMETRY and needs ST_AsWKB; without it the raw WKB blob is read.
		c, err := db.LoadCollection(ctx, s.db, db.GeometryQueryFrom(table, geom), geom)
		if err == nil {
			return c, nil
		}
		log.Printf("op=sources.parquet file=%s err=%v", ref.File, err)
		return db.LoadCollection(ctx, s.db, "SELECT * FROM "+table, geom)
	default:
		return nil, fmt.Errorf("source %q: %w", ref.File, ErrUnsupported)
	}
}

// Path resolves name inside the sources directory.
func (s *SourceService) Path(name string) (string, error) {
	return within(s.sourcesDir, name)
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// within joins name to dir, rejecting names that leave dir.
func within(dir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return filepath.Join(dir, name), nil
}
