package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/morpheus/pkg/auth"
	"github.com/rhuss/morpheus/pkg/observability"
	"github.com/rhuss/morpheus/pkg/transport"
)

// defaultDimensions is the vector length when a request sets none.
const defaultDimensions = 8

// jsonMarker identifies object-generation prompts.
const jsonMarker = "strictly in JSON format"

func newHandler(apiKey string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("POST /v1/embeddings", handleEmbeddings)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return transport.Chain(
		transport.RequestID(),
		transport.Logging(nil),
		transport.Recovery(nil),
		auth.NewAPIKeys(apiKey).Middleware(auth.DefaultBypassEndpoints...),
	)(observability.MetricsMiddleware(mux))
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions *int   `json:"dimensions,omitempty"`
}

// --- Chat ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "invalid_request_error")
		return
	}
	if !req.Stream {
		writeError(w, http.StatusBadRequest, "only streaming requests are supported", "invalid_request_error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	id := "chatcmpl-" + uuid.NewString()
	tokens, malformed := replyTokens(lastUserMessage(&req))

	// Comment lines are part of SSE and must be ignored by clients.
	fmt.Fprint(w, ": mock stream\n\n")
	writeChunk(w, id, model, map[string]any{"role": "assistant"}, nil)
	flusher.Flush()

	for i, token := range tokens {
		if malformed && i == len(tokens)/2 {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":\n\n")
		}
		writeChunk(w, id, model, map[string]any{"content": token}, nil)
		flusher.Flush()
	}

	stop := "stop"
	writeChunk(w, id, model, map[string]any{}, &stop)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// replyTokens picks the streamed content for a prompt and whether a
// malformed frame is injected.
func replyTokens(prompt string) ([]string, bool) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(prompt, jsonMarker):
		obj, _ := json.Marshal(map[string]any{"mock": true, "prompt_chars": len(prompt)})
		return []string{"Sure, here it is:\n", string(obj[:len(obj)/2]), string(obj[len(obj)/2:]), "\nDone."}, false
	case strings.Contains(lower, "count from 1 to 5"):
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}, false
	case strings.Contains(lower, "malformed"):
		return []string{"Hello", ", ", "nice", " ", "day", "!"}, true
	default:
		return []string{"Hello", ", ", "nice", " ", "day", "!"}, false
	}
}

func writeChunk(w http.ResponseWriter, id, model string, delta map[string]any, finish *string) {
	chunk := map[string]any{
		"id":     id,
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finish,
		}},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// --- Embeddings ---

func handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "invalid_request_error")
		return
	}
	dims := defaultDimensions
	if req.Dimensions != nil {
		if *req.Dimensions <= 0 {
			writeError(w, http.StatusBadRequest, "dimensions must be positive", "invalid_request_error")
			return
		}
		dims = *req.Dimensions
	}

	resp := map[string]any{
		"object": "list",
		"model":  req.Model,
		"data": []any{map[string]any{
			"object":    "embedding",
			"index":     0,
			"embedding": deterministicVector(req.Input, dims),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// deterministicVector expands an FNV hash of input into a unit vector.
func deterministicVector(input string, dims int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(input))
	state := h.Sum64()

	vec := make([]float64, dims)
	var norm float64
	for i := range vec {
		// xorshift64
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float64(state%2000)/1000 - 1
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": typ},
	})
}
