package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(Config{Extensions: []string{}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLoadCollectionWKT(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `CREATE TABLE stops (name VARCHAR, riders INTEGER, geom VARCHAR)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO stops VALUES
		('a', 10, 'POINT (-70.65 -33.44)'),
		('b', NULL, 'LINESTRING (0 0, 1 1)'),
		('c', 3, NULL)`)
	require.NoError(t, err)

	c, err := LoadCollection(ctx, conn, "SELECT * FROM stops ORDER BY name", "")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	require.Equal(t, orb.Point{-70.65, -33.44}, c.Features[0].Geometry)
	require.Equal(t, "a", c.Features[0].Properties["name"])
	require.NotContains(t, c.Features[0].Properties, "geom")
	require.IsType(t, orb.LineString{}, c.Features[1].Geometry)
	require.Nil(t, c.Features[1].Properties["riders"])
	require.Nil(t, c.Features[2].Geometry)

	riders, err := c.Column("riders")
	require.NoError(t, err)
	require.EqualValues(t, 10, riders[0])
}

func TestLoadCollectionMissingGeometry(t *testing.T) {
	conn := openMemory(t)
	_, err := LoadCollection(context.Background(), conn, "SELECT 1 AS n", "shape")
	require.ErrorIs(t, err, ErrNoGeometryColumn)
}

func TestLoadCollectionBadQuery(t *testing.T) {
	conn := openMemory(t)
	_, err := LoadCollection(context.Background(), conn, "SELECT * FROM nowhere", "")
	require.Error(t, err)
}

func TestGeometryQuery(t *testing.T) {
	require.Equal(t,
		`SELECT * EXCLUDE ("geom"), ST_AsWKB("geom") AS "geom" FROM "communes"`,
		GeometryQuery("communes", ""))
	require.Equal(t,
		`SELECT * EXCLUDE ("the""shape"), ST_AsWKB("the""shape") AS "the""shape" FROM "t"`,
		GeometryQuery("t", `the"shape`))
	require.Equal(t,
		`SELECT * EXCLUDE ("geometry"), ST_AsWKB("geometry") AS "geometry" FROM read_parquet('a.parquet')`,
		GeometryQueryFrom("read_parquet('a.parquet')", "geometry"))
}

func TestDecodeGeometry(t *testing.T) {
	g, err := decodeGeometry([]byte{
		0x01, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40,
	})
	require.NoError(t, err)
	require.Equal(t, orb.Point{1, 2}, g)

	_, err = decodeGeometry(42)
	require.Error(t, err)
	_, err = decodeGeometry("POINT (oops)")
	require.Error(t, err)
}
