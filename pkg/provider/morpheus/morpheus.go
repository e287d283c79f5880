package morpheus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/morpheus/pkg/config"
	"github.com/rhuss/morpheus/pkg/observability"
	"github.com/rhuss/morpheus/pkg/provider"
	"github.com/rhuss/morpheus/pkg/provider/openaicompat"
)

// ProviderName identifies this adapter in metrics and logs.
const ProviderName = "morpheus"

// Provider implements provider.TextGenerator and provider.ObjectGenerator
// for the Morpheus API.
type Provider struct {
	cfg    Config
	client *openaicompat.Client
	logger *slog.Logger
}

// Ensure Provider implements the capability interfaces at compile time.
var (
	_ provider.TextGenerator   = (*Provider)(nil)
	_ provider.ObjectGenerator = (*Provider)(nil)
)

// New creates a new Provider. Unset base URL and model names take the
// plugin defaults; the API key is not checked here so a host can load the
// plugin before credentials are configured.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultBaseURL
	}
	if cfg.SmallModel == "" {
		cfg.SmallModel = config.DefaultSmallModel
	}
	if cfg.LargeModel == "" {
		cfg.LargeModel = config.DefaultLargeModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("provider", ProviderName)

	client := openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient)
	if client.BaseURL() == "" {
		return nil, fmt.Errorf("morpheus: invalid BaseURL %q", cfg.BaseURL)
	}
	client.Provider = ProviderName
	client.Logger = logger

	return &Provider{cfg: cfg, client: client, logger: logger}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Model returns the model name configured for size.
func (p *Provider) Model(size provider.ModelSize) string {
	if size == provider.SizeLarge {
		return p.cfg.LargeModel
	}
	return p.cfg.SmallModel
}

// GenerateText streams one completion and returns its trimmed text.
func (p *Provider) GenerateText(ctx context.Context, size provider.ModelSize, params provider.TextParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	return p.complete(ctx, size, params.WithDefaults())
}

// complete sends a fully defaulted request and records metrics.
func (p *Provider) complete(ctx context.Context, size provider.ModelSize, params provider.TextParams) (string, error) {
	model := p.Model(size)
	req := &openaicompat.ChatCompletionRequest{
		Model: model,
		Messages: []openaicompat.ChatMessage{
			{Role: openaicompat.RoleSystem, Content: p.cfg.SystemPrompt},
			{Role: openaicompat.RoleUser, Content: params.Prompt},
		},
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	}

	start := time.Now()
	text, err := p.client.StreamChat(ctx, req)
	observability.ObserveProviderRequest(ProviderName, model, start, err)
	if err != nil {
		p.logger.Error("error generating response", "model", model, "error", err.Error())
		return "", err
	}
	return text, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	return p.client.Close()
}
