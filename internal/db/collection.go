package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/joeblew999/plat-carto/pkg/source"
)

// DefaultGeometryColumn is used when no geometry column is named.
const DefaultGeometryColumn = "geom"

// ErrNoGeometryColumn is returned when a query result lacks the geometry column.
var ErrNoGeometryColumn = errors.New("db: geometry column not in result")

// LoadCollection runs query and turns each row into a feature. The geometry
// column must hold WKB (a BLOB, such as ST_AsWKB(geom)) or WKT text; every
// other column becomes a property. NULL geometries give features without a
// geometry.
func LoadCollection(ctx context.Context, db *sql.DB, query, geomColumn string) (*source.Collection, error) {
	if geomColumn == "" {
		geomColumn = DefaultGeometryColumn
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	geomIdx := -1
	for i, c := range columns {
		if c == geomColumn {
			geomIdx = i
			break
		}
	}
	if geomIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %v", ErrNoGeometryColumn, geomColumn, columns)
	}

	c := source.New()
	row := 0
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		g, err := decodeGeometry(values[geomIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		props := make(map[string]any, len(columns)-1)
		for i, col := range columns {
			if i != geomIdx {
				props[col] = property(values[i])
			}
		}
		c.Features = append(c.Features, source.Feature{Geometry: g, Properties: props})
		row++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// GeometryQuery selects every column of table with geomColumn converted to
// WKB, ready for LoadCollection. Requires the spatial extension.
func GeometryQuery(table, geomColumn string) string {
	return GeometryQueryFrom(quoteIdent(table), geomColumn)
}

// GeometryQueryFrom is GeometryQuery over a raw FROM clause such as a table
// function call.
func GeometryQueryFrom(from, geomColumn string) string {
	if geomColumn == "" {
		geomColumn = DefaultGeometryColumn
	}
	g := quoteIdent(geomColumn)
	return fmt.Sprintf("SELECT * EXCLUDE (%s), ST_AsWKB(%s) AS %s FROM %s", g, g, g, from)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func decodeGeometry(v any) (orb.Geometry, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		g, err := wkb.Unmarshal(v)
		if err != nil {
			return nil, fmt.Errorf("decoding wkb: %w", err)
		}
		return g, nil
	case string:
		if v == "" {
			return nil, nil
		}
		g, err := wkt.Unmarshal(v)
		if err != nil {
			return nil, fmt.Errorf("decoding wkt: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry value %T", v)
	}
}

// property normalizes driver values to the types classify understands.
func property(v any) any {
	switch v := v.(type) {
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	case interface{ Float64() float64 }:
		return v.Float64()
	default:
		return v
	}
}
