package morpheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/observability"
	"github.com/rhuss/morpheus/pkg/provider"
	"github.com/rhuss/morpheus/pkg/provider/openaicompat"
)

// fakeBackend streams reply as SSE deltas and records the last request.
type fakeBackend struct {
	*httptest.Server
	reply  string
	status int

	mu      sync.Mutex
	lastReq openaicompat.ChatCompletionRequest
	calls   int
}

func (fb *fakeBackend) last() openaicompat.ChatCompletionRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastReq
}

func (fb *fakeBackend) callCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls
}

func newFakeBackend(t *testing.T, reply string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{reply: reply, status: http.StatusOK}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.calls++
		fb.lastReq = openaicompat.ChatCompletionRequest{}
		assert.NoError(t, json.Unmarshal(data, &fb.lastReq))
		fb.mu.Unlock()

		if fb.status != http.StatusOK {
			w.WriteHeader(fb.status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		// Split into two-byte deltas to exercise accumulation.
		for i := 0; i < len(fb.reply); i += 2 {
			end := min(i+2, len(fb.reply))
			content, _ := json.Marshal(fb.reply[i:end])
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", content)
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(fb.Close)
	return fb
}

func newTestProvider(t *testing.T, fb *fakeBackend, mutate ...func(*Config)) *Provider {
	t.Helper()
	cfg := Config{
		BaseURL:    fb.URL,
		APIKey:     "mor-key",
		SmallModel: "small-model",
		LargeModel: "large-model",
		HTTPClient: fb.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestProvider_Name(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "morpheus", p.Name())

	// Defaults fill unset fields.
	assert.Equal(t, "llama-3.2-3b", p.Model(provider.SizeSmall))
	assert.Equal(t, "llama-3.3-70b", p.Model(provider.SizeLarge))
}

func TestGenerateText_DefaultsAndModelSelection(t *testing.T) {
	fb := newFakeBackend(t, "  Hello from Morpheus.  ")
	p := newTestProvider(t, fb)

	text, err := p.GenerateText(context.Background(), provider.SizeLarge, provider.TextParams{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello from Morpheus.", text)

	req := fb.last()
	assert.Equal(t, "large-model", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openaicompat.ChatMessage{Role: "system", Content: DefaultSystemPrompt}, req.Messages[0])
	assert.Equal(t, openaicompat.ChatMessage{Role: "user", Content: "hi"}, req.Messages[1])
	assert.Equal(t, 0.7, *req.Temperature)
	assert.Equal(t, 8192, *req.MaxTokens)
	assert.Equal(t, 0.7, *req.FrequencyPenalty)
	assert.Equal(t, 0.7, *req.PresencePenalty)

	_, err = p.GenerateText(context.Background(), provider.SizeSmall, provider.TextParams{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "small-model", fb.last().Model)
}

func TestGenerateText_OverridesAndSystemPrompt(t *testing.T) {
	fb := newFakeBackend(t, "ok")
	p := newTestProvider(t, fb, func(c *Config) { c.SystemPrompt = "You are Eliza." })

	temp, maxTokens, freq := 1.2, 64, 0.0
	_, err := p.GenerateText(context.Background(), provider.SizeSmall, provider.TextParams{
		Prompt:           "hi",
		Temperature:      &temp,
		MaxTokens:        &maxTokens,
		FrequencyPenalty: &freq,
	})
	require.NoError(t, err)

	assert.Equal(t, "You are Eliza.", fb.last().Messages[0].Content)
	assert.Equal(t, 1.2, *fb.last().Temperature)
	assert.Equal(t, 64, *fb.last().MaxTokens)
	assert.Equal(t, 0.0, *fb.last().FrequencyPenalty)
	assert.Equal(t, 0.7, *fb.last().PresencePenalty)
}

func TestGenerateText_InvalidParamsSkipNetwork(t *testing.T) {
	fb := newFakeBackend(t, "unused")
	p := newTestProvider(t, fb)

	_, err := p.GenerateText(context.Background(), provider.SizeSmall, provider.TextParams{})
	require.Error(t, err)
	assert.True(t, api.IsType(err, api.ErrorTypeInvalidRequest))
	assert.Zero(t, fb.callCount())
}

func TestGenerateText_HTTPErrorRecordsMetrics(t *testing.T) {
	fb := newFakeBackend(t, "")
	fb.status = http.StatusServiceUnavailable
	p := newTestProvider(t, fb, func(c *Config) { c.SmallModel = "metrics-model" })

	counter := observability.ProviderRequestsTotal.WithLabelValues(ProviderName, "metrics-model", string(api.ErrorTypeTransport))
	before := testutil.ToFloat64(counter)

	_, err := p.GenerateText(context.Background(), provider.SizeSmall, provider.TextParams{Prompt: "hi"})
	require.Error(t, err)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestGenerateObject_AppendsInstructionAndParses(t *testing.T) {
	fb := newFakeBackend(t, "Sure! {\"name\":\"Ada\",\"age\":36}")
	p := newTestProvider(t, fb)

	obj, err := p.GenerateObject(context.Background(), provider.SizeLarge, provider.ObjectParams{Prompt: "describe Ada"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada", "age": float64(36)}, obj)

	req := fb.last()
	assert.Equal(t, "large-model", req.Model)
	assert.Equal(t, "describe Ada"+JSONInstruction, req.Messages[1].Content)
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, "before or after the JSON object."))
	assert.Equal(t, 0.0, *req.Temperature)
	assert.Equal(t, 8192, *req.MaxTokens)
	assert.Equal(t, 0.7, *req.FrequencyPenalty)
	assert.Equal(t, 0.7, *req.PresencePenalty)
}

func TestGenerateObject_TemperatureOverride(t *testing.T) {
	fb := newFakeBackend(t, `{"ok":true}`)
	p := newTestProvider(t, fb)

	temp := 0.3
	_, err := p.GenerateObject(context.Background(), provider.SizeSmall, provider.ObjectParams{Prompt: "x", Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, "small-model", fb.last().Model)
	assert.Equal(t, 0.3, *fb.last().Temperature)
}

func TestGenerateObject_ParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{"no object", "I cannot answer that.", api.ErrNoJSONObject},
		{"invalid object", "{invalid json}", api.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t, tt.reply)
			p := newTestProvider(t, fb)

			_, err := p.GenerateObject(context.Background(), provider.SizeSmall, provider.ObjectParams{Prompt: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, api.IsType(err, api.ErrorTypeParse))
		})
	}
}
