// Package transport carries request identity across the plugin's HTTP
// boundaries and provides the middleware chain used by the locally served
// endpoints (the mock backend).
//
// # Request IDs
//
// A request ID travels in the context. Callers that already have one (a
// host tracing an agent step) attach it with ContextWithRequestID and the
// upstream clients forward it as X-Request-ID; otherwise a fresh UUID is
// generated per upstream call.
//
// # Middleware
//
// Middleware wraps an http.Handler. Built-in middleware provides panic
// recovery, request ID assignment (X-Request-ID), and structured logging
// via log/slog.
package transport
