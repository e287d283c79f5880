package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID returns middleware that assigns a unique request ID to each
// request. An incoming X-Request-ID header is kept; otherwise a new ID is
// generated. The ID is stored in the context and echoed in the response
// header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = NewRequestID()
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
		})
	}
}

// NewRequestID creates a new unique request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID returns ctx's request ID, generating one when absent.
func EnsureRequestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return NewRequestID()
}
