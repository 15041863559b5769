package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-carto/internal/obs"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request context with an ID, reusing the client's
// header when present, and echoes it in the response.
func RequestID(ctx huma.Context, next func(huma.Context)) {
	id := ctx.Header(RequestIDHeader)
	if id == "" {
		id = obs.NewRequestID()
	}
	ctx.SetHeader(RequestIDHeader, id)
	next(huma.WithContext(ctx, obs.WithRequestID(ctx.Context(), id)))
}
