package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/transport"
)

// Client performs streaming chat completion requests against an
// OpenAI-compatible backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// Provider labels stream metrics and log lines. Empty disables frame metrics.
	Provider string

	// Logger receives skipped-frame and failure diagnostics. Nil uses slog.Default.
	Logger *slog.Logger
}

// NewClient creates a new Client for an OpenAI-compatible backend.
// A nil httpClient gets a client without timeout; the request context
// bounds each stream.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// StreamChat posts req with streaming enabled to {base}/chat/completions,
// reads the SSE body to completion and returns the trimmed concatenation of
// all content deltas.
//
// A non-2xx status fails immediately with a transport error carrying the
// status code. Malformed frames are skipped.
func (c *Client) StreamChat(ctx context.Context, req *ChatCompletionRequest) (string, error) {
	reqCopy := *req
	reqCopy.Stream = true

	body, err := json.Marshal(&reqCopy)
	if err != nil {
		return "", api.NewInvalidRequestError("", fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", api.NewInvalidRequestError("", fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	requestID := transport.EnsureRequestID(ctx)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set(transport.HeaderRequestID, requestID)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("providers", "chat completion request",
		"method", http.MethodPost, "url", url, "model", reqCopy.Model, "request_id", requestID)
	if debug.TraceIsEnabled("providers") {
		debug.Trace("providers", "chat completion request body", "body", string(body))
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger().Error("chat completion request failed", "url", url, "request_id", requestID, "error", err.Error())
		return "", MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("providers", "chat completion response",
		"status", httpResp.StatusCode, "request_id", requestID)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := MapHTTPError(httpResp)
		c.logger().Error("chat completion rejected", "status", httpResp.StatusCode, "request_id", requestID, "error", apiErr.Message)
		return "", apiErr
	}

	acc := NewStreamAccumulator(c.Provider, c.logger())
	return acc.ReadFrom(ctx, httpResp.Body)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
