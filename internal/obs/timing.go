// Package obs logs timings of pipeline stages and requests.
package obs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"
)

type ctxKey string

// RequestIDKey carries the request ID through a context.
const RequestIDKey ctxKey = "req_id"

// WithRequestID returns ctx tagged with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request ID of ctx, or "-".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return "-"
}

// NewRequestID returns a random 8-byte hex ID.
func NewRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Time starts timing op. Call the result with a pointer to the operation's
// error, usually deferred:
//
//	defer obs.Time(ctx, "carto.fetch")(&err)
//
// Operations that cannot fail pass nil.
func Time(ctx context.Context, op string) func(errp *error) {
	start := time.Now()
	return func(errp *error) {
		ms := time.Since(start).Milliseconds()
		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms err=%v", RequestID(ctx), op, ms, *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms", RequestID(ctx), op, ms)
	}
}
