// Package api defines the Huma API routes and handlers.
package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map    *service.MapService
	Source *service.SourceService
	Tile   *service.TileService
	Render *service.RenderService
	Bus    *service.EventBus
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Map ID" example:"santiago_population"`
}

type MapOutput struct {
	Body config.MapSpec
}

type MapsOutput struct {
	Body []config.MapSpec
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedMapBody struct {
	ID      string         `json:"id" doc:"Generated map ID"`
	Map     config.MapSpec `json:"map" doc:"Created map document"`
	Message string         `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// RenderParams override the output of a stored map.
type RenderParams struct {
	Format string `query:"format" doc:"png, jpeg or svg; defaults to the map's format" example:"png"`
	Width  int    `query:"width" minimum:"0" maximum:"8192" doc:"Output width in pixels; 0 keeps the map's width"`
}

// ImageOutput is a rendered map.
type ImageOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMaps registers map CRUD routes.
func (h *APIHandler) RegisterMaps(api huma.API) {
	huma.Get(api, "/api/v1/maps", h.GetMaps, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps", h.CreateMap, huma.OperationTags("maps"))
	huma.Get(api, "/api/v1/maps/{id}", h.GetMap, huma.OperationTags("maps"))
	huma.Put(api, "/api/v1/maps/{id}", h.PutMap, huma.OperationTags("maps"))
	huma.Delete(api, "/api/v1/maps/{id}", h.DeleteMap, huma.OperationTags("maps"))
}

// RegisterRender registers image rendering routes.
func (h *APIHandler) RegisterRender(api huma.API) {
	huma.Get(api, "/api/v1/maps/{id}/render", h.RenderMap, huma.OperationTags("render"))
	huma.Post(api, "/api/v1/render", h.RenderSpec, huma.OperationTags("render"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterBasemaps registers basemap archive routes.
func (h *APIHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Post(api, "/api/v1/basemaps", h.PackBasemap, huma.OperationTags("basemaps"))
}

// RegisterEvents registers the map event stream.
func (h *APIHandler) RegisterEvents(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "stream-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/events",
		Summary:     "Stream map events",
		Tags:        []string{"events"},
	}, map[string]any{
		"map": service.Event{},
	}, h.StreamEvents)
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetMaps(ctx context.Context, input *struct{}) (*MapsOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &MapsOutput{Body: []config.MapSpec{}}, nil
	}
	return &MapsOutput{Body: h.svc.Map.List()}, nil
}

func (h *APIHandler) CreateMap(ctx context.Context, input *struct{ Body config.MapSpec }) (*struct{ Body CreatedMapBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	created, err := h.svc.Map.Create(input.Body)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body CreatedMapBody }{Body: CreatedMapBody{
		ID: created.ID, Map: created, Message: "Map created",
	}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *IDInput) (*MapOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	m, ok := h.svc.Map.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("map not found")
	}
	return &MapOutput{Body: m}, nil
}

func (h *APIHandler) PutMap(ctx context.Context, input *struct {
	IDInput
	Body config.MapSpec
}) (*MapOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	updated, err := h.svc.Map.Update(input.ID, input.Body)
	if err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteMap(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if err := h.svc.Map.Delete(input.ID); err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Map deleted"}}, nil
}

func (h *APIHandler) RenderMap(ctx context.Context, input *struct {
	IDInput
	RenderParams
}) (*ImageOutput, error) {
	if h.svc == nil || h.svc.Map == nil || h.svc.Render == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	spec, ok := h.svc.Map.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("map not found")
	}
	if input.Format != "" {
		spec.Format = input.Format
	}
	if input.Width > 0 {
		spec.Width = input.Width
	}
	return h.render(ctx, &spec)
}

func (h *APIHandler) RenderSpec(ctx context.Context, input *struct{ Body config.MapSpec }) (*ImageOutput, error) {
	if h.svc == nil || h.svc.Render == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	return h.render(ctx, &input.Body)
}

func (h *APIHandler) render(ctx context.Context, spec *config.MapSpec) (*ImageOutput, error) {
	var buf bytes.Buffer
	format, err := h.svc.Render.Render(ctx, spec, &buf)
	if err != nil {
		return nil, statusError(err)
	}
	return &ImageOutput{ContentType: format.ContentType(), Body: buf.Bytes()}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list sources", err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*struct{ Body []service.TileFile }, error) {
	if h.svc == nil || h.svc.Tile == nil {
		return &struct{ Body []service.TileFile }{Body: []service.TileFile{}}, nil
	}
	tiles, err := h.svc.Tile.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list basemaps", err)
	}
	return &struct{ Body []service.TileFile }{Body: tiles}, nil
}

func (h *APIHandler) PackBasemap(ctx context.Context, input *struct{ Body service.PackOptions }) (*struct{ Body service.TileFile }, error) {
	if h.svc == nil || h.svc.Tile == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	opts := input.Body
	if opts.URL == "" && h.svc.Render != nil {
		opts.URL = h.svc.Render.TileURL
	}
	tf, err := h.svc.Tile.Pack(ctx, opts, nil)
	if err != nil {
		return nil, statusError(err)
	}
	h.svc.Bus.Publish(service.Event{Resource: "basemaps", Action: "created", ID: tf.Name})
	return &struct{ Body service.TileFile }{Body: tf}, nil
}

func (h *APIHandler) StreamEvents(ctx context.Context, input *struct{}, send sse.Sender) {
	if h.svc == nil || h.svc.Bus == nil {
		return
	}
	ch := h.svc.Bus.Subscribe()
	defer h.svc.Bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := send.Data(ev); err != nil {
				return
			}
		}
	}
}
