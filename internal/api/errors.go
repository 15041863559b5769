package api

import (
	"errors"
	"log"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/internal/service"
	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/carto"
	"github.com/joeblew999/plat-carto/pkg/classify"
	"github.com/joeblew999/plat-carto/pkg/render"
	"github.com/joeblew999/plat-carto/pkg/source"
)

// badRequest lists errors caused by the request document.
var badRequest = []error{
	config.ErrInvalid,
	service.ErrBadName,
	service.ErrUnsupported,
	carto.ErrMissingColumn,
	carto.ErrEmptySource,
	carto.ErrScheme,
	classify.ErrMixedCategories,
	classify.ErrUnknownPalette,
	classify.ErrColor,
	basemap.ErrInvalidBound,
	basemap.ErrPackRange,
	render.ErrFormat,
	source.ErrNoColumn,
	source.ErrShortRow,
	source.ErrCoordinate,
}

// statusError maps service and library errors to HTTP errors.
func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrNoDatabase):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, basemap.ErrTileStatus):
		return huma.Error502BadGateway(err.Error())
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return huma.Error400BadRequest(err.Error())
		}
	}
	log.Printf("op=api.error err=%v", err)
	return huma.Error500InternalServerError("internal error", err)
}
