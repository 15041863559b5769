package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

var (
	// ErrShortRow is returned for CSV rows that end before a geometry column.
	ErrShortRow = errors.New("source: row has no geometry cell")
	// ErrCoordinate is returned for latitude/longitude cells that are not
	// finite numbers in range.
	ErrCoordinate = errors.New("source: invalid coordinate")
)

// CSVOptions selects the geometry columns of a CSV file.
// Empty fields fall back to column detection by header name.
type CSVOptions struct {
	GeometryColumn string // WKT geometry column
	LatColumn      string
	LonColumn      string
}

// ReadCSV reads a CSV with a header row. Geometry comes from a WKT column
// (wkt|geometry|geom) or from latitude/longitude columns
// (lat|latitude|y and lon|lng|long|longitude|x, case-insensitive).
// Remaining columns become properties: numbers are parsed as float64,
// empty cells are nil, everything else stays a string.
func ReadCSV(r io.Reader, opts CSVOptions) (*Collection, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Short rows keep their leading columns; missing properties are left out.
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, errors.New("csv: empty file")
	}

	header := recs[0]
	idxGeom := columnIndex(header, opts.GeometryColumn, "wkt", "geometry", "geom")
	idxLat := columnIndex(header, opts.LatColumn, "lat", "latitude", "y")
	idxLon := columnIndex(header, opts.LonColumn, "lon", "lng", "long", "longitude", "x")
	if idxGeom == -1 && (idxLat == -1 || idxLon == -1) {
		return nil, errors.New("csv: no geometry or latitude/longitude columns found")
	}

	c := &Collection{}
	for n, row := range recs[1:] {
		var g orb.Geometry
		if idxGeom != -1 {
			if idxGeom >= len(row) {
				return nil, fmt.Errorf("csv row %d: %w", n+2, ErrShortRow)
			}
			g, err = wkt.Unmarshal(strings.TrimSpace(row[idxGeom]))
			if err != nil {
				return nil, fmt.Errorf("csv row %d: %w", n+2, err)
			}
		} else {
			if idxLat >= len(row) || idxLon >= len(row) {
				return nil, fmt.Errorf("csv row %d: %w", n+2, ErrShortRow)
			}
			lon, err := coordinate(row[idxLon], 180)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: longitude: %w", n+2, err)
			}
			lat, err := coordinate(row[idxLat], 90)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: latitude: %w", n+2, err)
			}
			g = orb.Point{lon, lat}
		}

		props := make(map[string]any, len(header))
		for i, name := range header {
			if i == idxGeom || i == idxLat || i == idxLon || i >= len(row) {
				continue
			}
			props[name] = cell(row[i])
		}
		c.Features = append(c.Features, Feature{Geometry: g, Properties: props})
	}
	return c, nil
}

// LoadCSV reads a CSV file from disk.
func LoadCSV(path string, opts CSVOptions) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// coordinate parses a finite degree value within ±limit.
func coordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCoordinate, s)
	}
	if math.IsNaN(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("%w: %q", ErrCoordinate, s)
	}
	return v, nil
}

func columnIndex(header []string, explicit string, candidates ...string) int {
	if explicit != "" {
		for i, h := range header {
			if h == explicit {
				return i
			}
		}
		return -1
	}
	for _, want := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return -1
}

func cell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
