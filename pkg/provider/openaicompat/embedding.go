package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/config"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/transport"
)

// EmbeddingClient calls an OpenAI-compatible /embeddings endpoint for a
// single input.
type EmbeddingClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions *int
	HTTPClient *http.Client
}

// Embed returns the first embedding vector for text, verbatim.
//
// An empty APIKey fails with a missing_credential error before any network
// I/O.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.APIKey == "" {
		return nil, api.NewMissingCredentialError(config.KeyEmbeddingAPIKey, config.KeyEmbeddingAPIKey+" is required for embeddings")
	}

	payload := EmbeddingRequest{Input: text, Model: c.Model}
	if c.Dimensions != nil && *c.Dimensions > 0 {
		payload.Dimensions = c.Dimensions
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	requestID := transport.EnsureRequestID(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set(transport.HeaderRequestID, requestID)

	debug.Log("embeddings", "embedding request",
		"url", endpoint, "model", c.Model, "request_id", requestID, "input_len", len(text))

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, MapHTTPError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	var embResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, api.NewParseError(fmt.Errorf("parsing embedding response: %w", err))
	}
	if len(embResp.Data) == 0 {
		return nil, api.NewParseError(fmt.Errorf("embedding response contained no data"))
	}

	return embResp.Data[0].Embedding, nil
}
