// Command mock-backend runs a deterministic stand-in for the Morpheus chat
// completion API and the OpenAI embeddings API. Chat responses are always
// streamed as SSE; the content depends on the last user message:
//
//   - a prompt carrying the JSON instruction gets prose around a JSON object
//   - "count from 1 to 5" gets "1, 2, 3, 4, 5"
//   - "malformed" gets a stream with one invalid frame in the middle
//   - anything else gets "Hello, nice day!"
//
// Embeddings are derived from a hash of the input, so equal inputs yield
// equal vectors.
//
// Configuration:
//
//	MOCK_PORT    - Listen port (default: 9090)
//	MOCK_API_KEY - If set, requests must carry "Authorization: Bearer <key>"
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newHandler(os.Getenv("MOCK_API_KEY")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
