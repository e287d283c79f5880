package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rhuss/morpheus/pkg/api"
)

func TestEmbed_ReturnsFirstVector(t *testing.T) {
	var got EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,-1.5,3]},{"index":1,"embedding":[9]}]}`)
	}))
	defer srv.Close()

	c := &EmbeddingClient{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "text-embedding-3-small"}
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0.25, -1.5, 3}
	if len(vec) != len(want) {
		t.Fatalf("vector = %v, want %v", vec, want)
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
	if got.Input != "hello" || got.Model != "text-embedding-3-small" {
		t.Errorf("request = %+v", got)
	}
	if got.Dimensions != nil {
		t.Errorf("dimensions should be omitted, got %d", *got.Dimensions)
	}
}

func TestEmbed_SendsDimensions(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		io.WriteString(w, `{"data":[{"embedding":[1,2]}]}`)
	}))
	defer srv.Close()

	dims := 2
	c := &EmbeddingClient{BaseURL: srv.URL, APIKey: "k", Model: "m", Dimensions: &dims}
	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["dimensions"] != float64(2) {
		t.Errorf("dimensions = %v, want 2", raw["dimensions"])
	}
}

func TestEmbed_OmitsNonPositiveDimensions(t *testing.T) {
	for _, dims := range []int{0, -3} {
		var raw map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&raw)
			io.WriteString(w, `{"data":[{"embedding":[1,2]}]}`)
		}))

		c := &EmbeddingClient{BaseURL: srv.URL, APIKey: "k", Model: "m", Dimensions: &dims}
		if _, err := c.Embed(context.Background(), "x"); err != nil {
			t.Fatalf("dims %d: unexpected error: %v", dims, err)
		}
		if _, ok := raw["dimensions"]; ok {
			t.Errorf("dims %d: dimensions should be omitted, got %v", dims, raw["dimensions"])
		}
		srv.Close()
	}
}

func TestEmbed_MissingKeyFailsBeforeIO(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := &EmbeddingClient{BaseURL: srv.URL, Model: "m"}
	_, err := c.Embed(context.Background(), "x")
	if !errors.Is(err, api.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error should name the key: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no HTTP request, got %d", calls.Load())
	}
}

func TestEmbed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	c := &EmbeddingClient{BaseURL: srv.URL, APIKey: "bad", Model: "m"}
	_, err := c.Embed(context.Background(), "x")

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "401 Unauthorized") || !strings.Contains(apiErr.Message, "Incorrect API key") {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestEmbed_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"empty data", `{"data":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := &EmbeddingClient{BaseURL: srv.URL, APIKey: "k", Model: "m"}
			_, err := c.Embed(context.Background(), "x")
			if !api.IsType(err, api.ErrorTypeParse) {
				t.Errorf("expected parse error, got %v", err)
			}
		})
	}
}
