package project

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-carto/pkg/source"
)

// scale maps lon to x and lat to -y, ten pixels per degree.
func scale(lat, lon float64) (float64, float64) {
	return lon * 10, -lat * 10
}

func TestProject(t *testing.T) {
	square := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	hole := orb.Ring{{0.2, 0.2}, {0.4, 0.2}, {0.4, 0.4}, {0.2, 0.2}}

	tests := []struct {
		name  string
		geom  orb.Geometry
		kinds []Kind
		rings [][]int
	}{
		{"point", orb.Point{1, 2}, []Kind{Point}, [][]int{{1}}},
		{"line", orb.LineString{{0, 0}, {1, 1}, {2, 0}}, []Kind{Line}, [][]int{{3}}},
		{"polygon with hole", orb.Polygon{square, hole}, []Kind{Polygon}, [][]int{{5, 4}}},
		{"multipolygon", orb.MultiPolygon{{square}, {hole}}, []Kind{Polygon, Polygon}, [][]int{{5}, {4}}},
		{"empty polygon", orb.Polygon{orb.Ring{}}, []Kind{Polygon}, [][]int{{0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.geom, 7, scale)
			require.Len(t, got, len(tt.kinds))
			for i, pg := range got {
				require.Equal(t, tt.kinds[i], pg.Kind)
				require.Equal(t, 7, pg.Feature)
				require.Len(t, pg.Rings, len(tt.rings[i]))
				for j, n := range tt.rings[i] {
					require.Len(t, pg.Rings[j], n)
				}
			}
		})
	}
}

func TestProjectCoordinates(t *testing.T) {
	got := Project(orb.LineString{{1, 2}, {3, 4}}, 0, scale)
	require.Equal(t, []Pixel{{10, -20}, {30, -40}}, got[0].Rings[0])
}

func TestProjectSkipsUnsupported(t *testing.T) {
	for _, g := range []orb.Geometry{
		nil,
		orb.MultiPoint{{1, 2}},
		orb.MultiLineString{{{0, 0}, {1, 1}}},
		orb.Collection{orb.Point{1, 1}},
		orb.Ring{{0, 0}, {1, 1}, {0, 0}},
		orb.Bound{},
	} {
		require.Nil(t, Project(g, 0, scale), "%T", g)
	}
}

func TestEmpty(t *testing.T) {
	pg := Project(orb.LineString{}, 0, scale)[0]
	require.True(t, pg.Empty())
	require.Equal(t, 0, pg.Len())
	require.False(t, Project(orb.Point{0, 0}, 0, scale)[0].Empty())
}

func TestCollection(t *testing.T) {
	c := source.New(
		source.Feature{Geometry: orb.MultiPolygon{
			{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}},
		}},
		source.Feature{Geometry: orb.MultiPoint{{5, 5}}},
		source.Feature{Geometry: orb.Point{4, 4}},
	)

	got := Collection(c, scale, Options{})
	require.Len(t, got, 3)
	require.Equal(t, []int{0, 0, 2}, []int{got[0].Feature, got[1].Feature, got[2].Feature})
}

func TestCollectionCentroids(t *testing.T) {
	c := source.New(source.Feature{Geometry: orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}})

	got := Collection(c, scale, Options{Centroids: true})
	require.Len(t, got, 1)
	require.Equal(t, Point, got[0].Kind)
	require.InDelta(t, 10.0, got[0].Rings[0][0].X, 1e-9)
	require.InDelta(t, -10.0, got[0].Rings[0][0].Y, 1e-9)
}

func TestSimplifyLeavesInputUntouched(t *testing.T) {
	ls := orb.LineString{{0, 0}, {1, 0.001}, {2, 0}}
	got := Simplify(ls, 0.1)
	require.Equal(t, orb.LineString{{0, 0}, {2, 0}}, got)
	require.Len(t, ls, 3)

	p := orb.Point{1, 1}
	require.Equal(t, p, Simplify(p, 0.1))
}
