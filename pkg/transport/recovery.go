package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to a 500 JSON error in the OpenAI error format. The server
// continues to accept new requests after a panic is recovered.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panic",
						"request_id", RequestIDFromContext(r.Context()),
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]any{
						"error": map[string]any{
							"message": fmt.Sprintf("internal server error: %v", rec),
							"type":    "server_error",
						},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
