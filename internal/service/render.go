package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/carto"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// RenderService turns map documents into images.
type RenderService struct {
	sources *SourceService
	tiles   *TileService
	bus     *EventBus

	// TileURL is used by documents without a basemap URL or archive.
	TileURL string
	// Client overrides the HTTP client of tile servers.
	Client *http.Client
}

// NewRenderService creates a render service. bus may be nil.
func NewRenderService(sources *SourceService, tiles *TileService, bus *EventBus) *RenderService {
	return &RenderService{sources: sources, tiles: tiles, bus: bus, TileURL: basemap.DefaultTileURL}
}

// Provider returns the basemap provider of spec and a function releasing it.
// An archive takes precedence over a URL.
func (s *RenderService) Provider(spec config.BasemapSpec) (basemap.Provider, func(), error) {
	if spec.Archive != "" {
		a, err := s.tiles.Open(spec.Archive)
		if err != nil {
			return nil, nil, err
		}
		if spec.MaxTiles > 0 {
			a.MaxTiles = spec.MaxTiles
		}
		return a, func() { a.Close() }, nil
	}

	url := spec.URL
	if url == "" {
		url = s.TileURL
	}
	ts := basemap.NewTileServer(url)
	if spec.MaxTiles > 0 {
		ts.MaxTiles = spec.MaxTiles
	}
	if spec.UserAgent != "" {
		ts.UserAgent = spec.UserAgent
	}
	if s.Client != nil {
		ts.Client = s.Client
	}
	return ts, func() {}, nil
}

// Figure loads the sources of spec, fetches its basemap and draws it.
func (s *RenderService) Figure(ctx context.Context, spec *config.MapSpec) (fig *render.Figure, err error) {
	defer obs.Time(ctx, "render.figure")(&err)

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	src, err := s.sources.Load(ctx, spec.Source)
	if err != nil {
		return nil, err
	}
	p, release, err := s.Provider(spec.Basemap)
	if err != nil {
		return nil, err
	}
	defer release()

	switch spec.Mode {
	case config.ModeChoropleth:
		return carto.Choropleth(ctx, src, p, spec.ChoroplethOptions())
	case config.ModeMarkers:
		return carto.Markers(ctx, src, p, spec.MarkerOptions())
	case config.ModeLines:
		fig, err := carto.Basemap(ctx, src, p, spec.MapOptions())
		if err != nil {
			return nil, err
		}
		if err := carto.PlotLines(fig, src, spec.LineOptions()); err != nil {
			return nil, err
		}
		return fig, nil
	case config.ModeMarkersLayers:
		var layer *source.Collection
		if spec.Layer != nil {
			if layer, err = s.sources.Load(ctx, *spec.Layer); err != nil {
				return nil, fmt.Errorf("loading layer: %w", err)
			}
		}
		return carto.MarkersLayers(ctx, src, layer, p, carto.MarkersLayersOptions{
			Markers: spec.MarkerOptions(),
			Lines:   spec.LineOptions(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", config.ErrInvalid, spec.Mode)
	}
}

// Render draws spec and writes the encoded image to w.
func (s *RenderService) Render(ctx context.Context, spec *config.MapSpec, w io.Writer) (render.Format, error) {
	fig, err := s.Figure(ctx, spec)
	if err == nil {
		_, err = fig.WriteTo(w, spec.OutputFormat())
	}
	ev := Event{Resource: "maps", Action: "rendered", ID: spec.ID}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(ev)
	return spec.OutputFormat(), err
}
