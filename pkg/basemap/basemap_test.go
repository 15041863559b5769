package basemap

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-carto/internal/pmtiles"
)

var red = color.RGBA{R: 255, A: 255}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	for y := 0; y < TileSize; y++ {
		for x := 0; x < TileSize; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type tileRecorder struct {
	mu    sync.Mutex
	paths []string
	ua    string
}

func newTileServer(t *testing.T, status int) (*httptest.Server, *tileRecorder) {
	t.Helper()
	rec := &tileRecorder{}
	tile := solidPNG(t, red)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.URL.Path)
		rec.ua = r.Header.Get("User-Agent")
		rec.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(tile)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

var equator = orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}

func TestChooseZoomReducesToMaxTiles(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-100, -60}, Max: orb.Point{100, 60}}

	box := ChooseZoom(bound, DefaultZoom, DefaultMaxTiles)
	require.Equal(t, maptile.Zoom(2), box.Zoom)
	require.LessOrEqual(t, box.Count(), DefaultMaxTiles)
	require.Greater(t, TilesInBound(bound, box.Zoom+1).Count(), DefaultMaxTiles)
}

func TestTilesInBound(t *testing.T) {
	box := TilesInBound(equator, 3)
	require.Equal(t, TileBox{Zoom: 3, MinX: 3, MinY: 3, MaxX: 4, MaxY: 4}, box)
	require.Len(t, box.Tiles(), 4)
	require.Equal(t, maptile.New(3, 3, 3), box.Tiles()[0])
}

func TestPad(t *testing.T) {
	b := Pad(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 20}}, 0.1)
	require.InDelta(t, -1.0, b.Min[0], 1e-9)
	require.InDelta(t, -2.0, b.Min[1], 1e-9)
	require.InDelta(t, 11.0, b.Max[0], 1e-9)
	require.InDelta(t, 22.0, b.Max[1], 1e-9)

	require.Equal(t, equator, Pad(equator, 0))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(equator))
	require.ErrorIs(t, Validate(orb.Bound{Min: orb.Point{1, 0}, Max: orb.Point{0, 0}}), ErrInvalidBound)
}

func TestTileServerFetch(t *testing.T) {
	srv, rec := newTileServer(t, http.StatusOK)
	ts := NewTileServer(srv.URL + "/{z}/{x}/{y}.png")

	m, err := ts.Fetch(context.Background(), equator, 3, 0)
	require.NoError(t, err)
	require.Equal(t, maptile.Zoom(3), m.Zoom)
	require.Equal(t, 2*TileSize, m.Width())
	require.Equal(t, 2*TileSize, m.Height())
	require.Len(t, rec.paths, 4)
	require.Contains(t, rec.paths, "/3/4/4.png")
	require.Equal(t, DefaultUserAgent, rec.ua)

	x, y := m.ToPixels(0, 0)
	require.InDelta(t, 256.0, x, 1e-9)
	require.InDelta(t, 256.0, y, 1e-9)
	require.Equal(t, red, m.Image.At(10, 10))
}

func TestToPixelsSeq(t *testing.T) {
	m := &Map{Zoom: 3, Box: TileBox{Zoom: 3, MinX: 3, MinY: 3, MaxX: 4, MaxY: 4}}

	xs, ys, err := m.ToPixelsSeq([]float64{0, 0}, []float64{0, 45})
	require.NoError(t, err)
	require.InDelta(t, 256.0, xs[0], 1e-9)
	require.InDelta(t, 256.0, ys[0], 1e-9)
	require.InDelta(t, 512.0, xs[1], 1e-9)
	require.InDelta(t, 256.0, ys[1], 1e-9)

	_, _, err = m.ToPixelsSeq([]float64{0}, nil)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTileServerStatusError(t *testing.T) {
	srv, _ := newTileServer(t, http.StatusForbidden)
	ts := NewTileServer(srv.URL + "/{z}/{x}/{y}.png")

	_, err := ts.Fetch(context.Background(), equator, 3, 0)
	require.ErrorIs(t, err, ErrTileStatus)
}

func TestTileURLSubdomains(t *testing.T) {
	ts := NewTileServer("https://{s}.tile.example.org/{z}/{x}/{y}.png")
	got := ts.TileURL(maptile.New(1, 2, 3))
	require.True(t, strings.HasPrefix(got, "https://a.tile.example.org/"), got)
	require.True(t, strings.HasSuffix(got, "/3/1/2.png"), got)
}

func TestPackAndOpenArchive(t *testing.T) {
	srv, _ := newTileServer(t, http.StatusOK)
	ts := NewTileServer(srv.URL + "/{z}/{x}/{y}.png")

	var buf bytes.Buffer
	n, err := Pack(context.Background(), ts, equator, &buf, PackOptions{MinZoom: 0, MaxZoom: 1})
	require.NoError(t, err)
	require.Equal(t, 5, n)

	path := filepath.Join(t.TempDir(), "base.pmtiles")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	a, err := OpenArchive(path)
	require.NoError(t, err)
	defer a.Close()

	minZ, maxZ := a.ZoomRange()
	require.Equal(t, 0, minZ)
	require.Equal(t, 1, maxZ)
	require.Equal(t, "basemap", a.Metadata()["name"])

	m, err := a.Fetch(context.Background(), equator, DefaultZoom, 0)
	require.NoError(t, err)
	require.Equal(t, maptile.Zoom(1), m.Zoom)
	require.Equal(t, 2*TileSize, m.Width())
	require.Equal(t, red, m.Image.At(300, 300))
}

func TestPackTileLimit(t *testing.T) {
	srv, rec := newTileServer(t, http.StatusOK)
	ts := NewTileServer(srv.URL + "/{z}/{x}/{y}.png")

	_, err := Pack(context.Background(), ts, equator, &bytes.Buffer{}, PackOptions{MinZoom: 0, MaxZoom: 3, MaxTiles: 4})
	require.Error(t, err)
	require.Empty(t, rec.paths)
}

func TestArchiveMissingTilesAreBlank(t *testing.T) {
	var buf bytes.Buffer
	err := pmtiles.Write(&buf, []pmtiles.Tile{{Z: 1, X: 0, Y: 0, Data: solidPNG(t, red)}}, pmtiles.WriteOptions{
		TileType: pmtiles.Png,
		MinZoom:  1,
		MaxZoom:  1,
		Bounds:   [4]float64{-180, -85, 180, 85},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sparse.pmtiles")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	a, err := OpenArchive(path)
	require.NoError(t, err)
	defer a.Close()

	m, err := a.Fetch(context.Background(), orb.Bound{Min: orb.Point{-170, -80}, Max: orb.Point{170, 80}}, 4, 0)
	require.NoError(t, err)
	require.Equal(t, maptile.Zoom(1), m.Zoom)
	require.Equal(t, red, m.Image.At(10, 10))
	require.Equal(t, color.RGBA{}, m.Image.At(300, 300))
}
