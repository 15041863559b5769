package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/render"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// InfoHandler describes what this server can draw and what it holds.
type InfoHandler struct {
	dataDir string
	dbOK    bool
	svc     *Services
}

func NewInfoHandler(dataDir string, dbOK bool, svc *Services) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// InfoCounts is the number of documents and files on disk.
type InfoCounts struct {
	Maps     int `json:"maps"`
	Sources  int `json:"sources"`
	Basemaps int `json:"basemaps"`
}

type InfoBody struct {
	Name     string     `json:"name" doc:"Service name"`
	Version  string     `json:"version" doc:"Service version"`
	DataDir  string     `json:"data_dir" doc:"Data directory path"`
	DB       bool       `json:"db" doc:"Whether database is available"`
	TileURL  string     `json:"tile_url" doc:"Tile server used by maps without a basemap"`
	Modes    []string   `json:"modes" doc:"Map drawing modes"`
	Palettes []string   `json:"palettes" doc:"Palette names accepted by maps"`
	Formats  []string   `json:"formats" doc:"Output image formats"`
	Counts   InfoCounts `json:"counts" doc:"Stored maps, sources and basemap archives"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-carto",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Modes:    []string{config.ModeChoropleth, config.ModeMarkers, config.ModeLines, config.ModeMarkersLayers},
		Palettes: classify.Palettes(),
		Formats:  []string{string(render.PNG), string(render.JPEG), string(render.SVG)},
	}
	if h.svc != nil {
		if h.svc.Render != nil {
			body.TileURL = h.svc.Render.TileURL
		}
		if h.svc.Map != nil {
			body.Counts.Maps = len(h.svc.Map.List())
		}
		// Listing errors leave the count at zero; a missing directory is not fatal here.
		if h.svc.Source != nil {
			if files, err := h.svc.Source.List(); err == nil {
				body.Counts.Sources = len(files)
			}
		}
		if h.svc.Tile != nil {
			if files, err := h.svc.Tile.List(); err == nil {
				body.Counts.Basemaps = len(files)
			}
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
