// Package openai implements the embedding capability against the OpenAI
// embeddings API.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/morpheus/pkg/config"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/observability"
	"github.com/rhuss/morpheus/pkg/provider"
	"github.com/rhuss/morpheus/pkg/provider/openaicompat"
)

// ProviderName identifies this adapter in metrics and logs.
const ProviderName = "openai"

// Config holds configuration for the OpenAI embedding adapter.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions *int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// FromSettings builds a Config from resolved plugin settings.
func FromSettings(cfg config.Config) Config {
	return Config{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	}
}

// Embedder implements provider.Embedder.
type Embedder struct {
	client *openaicompat.EmbeddingClient
	logger *slog.Logger
}

var _ provider.Embedder = (*Embedder)(nil)

// New creates an Embedder. It never fails: a missing API key is reported by
// each Embed call so the plugin can load without credentials.
func New(cfg Config) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultEmbeddingBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultEmbeddingModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		client: &openaicompat.EmbeddingClient{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			HTTPClient: cfg.HTTPClient,
		},
		logger: logger.With("provider", ProviderName),
	}
}

// Name returns the provider identifier.
func (e *Embedder) Name() string {
	return ProviderName
}

// Model returns the configured embedding model.
func (e *Embedder) Model() string {
	return e.client.Model
}

// Embed returns the embedding of params.Input().
func (e *Embedder) Embed(ctx context.Context, params provider.EmbeddingParams) ([]float64, error) {
	debug.Log("embeddings", "embedding handler entered", "model", e.client.Model)

	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := e.client.Embed(ctx, params.Input())
	observability.ObserveProviderRequest(ProviderName, e.client.Model, start, err)
	if err != nil {
		e.logger.Error("error generating embedding", "model", e.client.Model, "error", err.Error())
		return nil, err
	}

	observability.EmbeddingDimensions.WithLabelValues(e.client.Model).Set(float64(len(vec)))
	return vec, nil
}
