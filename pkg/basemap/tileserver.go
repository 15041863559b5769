package basemap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	// DefaultTileURL is the OpenStreetMap standard tile layer.
	DefaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

	// DefaultUserAgent identifies tile requests; OSM rejects requests without one.
	DefaultUserAgent = "plat-carto/0.1"
)

// ErrTileStatus is returned when a tile server answers with a non-200 status.
var ErrTileStatus = errors.New("basemap: unexpected tile server status")

// TileServer fetches tiles from an XYZ tile server.
type TileServer struct {
	// URL is a template with {z}, {x}, {y} and optionally {s} placeholders.
	URL string
	// Subdomains are substituted for {s}, rotating by tile.
	Subdomains []string
	UserAgent  string
	MaxTiles   int
	Client     *http.Client
}

// NewTileServer creates a tile server provider. An empty url selects
// DefaultTileURL.
func NewTileServer(url string) *TileServer {
	if url == "" {
		url = DefaultTileURL
	}
	return &TileServer{
		URL:        url,
		Subdomains: []string{"a", "b", "c"},
		UserAgent:  DefaultUserAgent,
		MaxTiles:   DefaultMaxTiles,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch implements Provider.
func (s *TileServer) Fetch(ctx context.Context, bound orb.Bound, zoom int, margin float64) (*Map, error) {
	if err := Validate(bound); err != nil {
		return nil, err
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	bound = Pad(bound, margin)
	box := ChooseZoom(bound, zoom, s.MaxTiles)

	img, err := Stitch(ctx, box, func(ctx context.Context, t maptile.Tile) (image.Image, error) {
		data, err := s.Tile(ctx, t)
		if err != nil {
			return nil, err
		}
		return DecodeTile(data)
	})
	if err != nil {
		return nil, err
	}
	return &Map{Image: img, Zoom: box.Zoom, Bound: bound, Box: box}, nil
}

// TileURL expands the URL template for t.
func (s *TileServer) TileURL(t maptile.Tile) string {
	sub := ""
	if len(s.Subdomains) > 0 {
		sub = s.Subdomains[int(t.X+t.Y)%len(s.Subdomains)]
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{s}", sub,
	)
	return r.Replace(s.URL)
}

// Tile downloads the raw bytes of one tile.
func (s *TileServer) Tile(ctx context.Context, t maptile.Tile) ([]byte, error) {
	url := s.TileURL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating tile request: %w", err)
	}
	ua := s.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrTileStatus, url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

var _ Provider = (*TileServer)(nil)
