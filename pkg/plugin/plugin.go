package plugin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/config"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/provider"
	"github.com/rhuss/morpheus/pkg/provider/morpheus"
	"github.com/rhuss/morpheus/pkg/provider/openai"
)

// Name is the plugin identifier.
const Name = "morpheus"

// Version is reported in the description and the init log line.
const Version = "1.1.2"

// Plugin is the descriptor a host registers.
type Plugin struct {
	Name        string
	Description string
	Version     string
	Models      Models

	httpClient *http.Client
	logOutput  io.Writer
	extra      []config.Source

	mu      sync.RWMutex
	logger  *slog.Logger
	initCfg config.MapSource
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithHTTPClient sets the client shared by every upstream call.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Plugin) { p.httpClient = c }
}

// WithLogger sets the base logger. A "plugin" attribute is added.
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// WithLogOutput makes the plugin own logging: Init installs a text handler
// on w as the default logger, at the resolved MORPHEUS_LOG_LEVEL with the
// resolved MORPHEUS_DEBUG categories.
func WithLogOutput(w io.Writer) Option {
	return func(p *Plugin) { p.logOutput = w }
}

// WithSources appends setting sources consulted after the runtime, the
// environment and the init config, e.g. a config file or .env file.
func WithSources(srcs ...config.Source) Option {
	return func(p *Plugin) { p.extra = append(p.extra, srcs...) }
}

// New creates the plugin with its capability table wired.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		Name:        Name,
		Description: fmt.Sprintf("Morpheus AI plugin (Handles Inference; Embeddings via OpenAI - v%s)", Version),
		Version:     Version,
		httpClient:  &http.Client{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("plugin", Name)

	p.Models = Models{
		TextSmall:     p.textHandler(provider.SizeSmall),
		TextLarge:     p.textHandler(provider.SizeLarge),
		ObjectSmall:   p.objectHandler(provider.SizeSmall),
		ObjectLarge:   p.objectHandler(provider.SizeLarge),
		TextEmbedding: p.embed,
	}
	return p
}

// missingKeyImpact names what stops working without each required key.
var missingKeyImpact = map[string]string{
	config.KeyAPIKey:          "Morpheus text generation will fail",
	config.KeyEmbeddingAPIKey: "Embeddings via OpenAI will fail",
}

// Init is the host lifecycle hook. It stores cfg as a settings source,
// applies the resolved log level and debug categories, validates the
// configuration and warns about every problem, but never refuses to load:
// the only error returned is ctx's.
func (p *Plugin) Init(ctx context.Context, cfg map[string]string, rt Runtime) error {
	p.log().Info("initializing", "version", Version)

	p.mu.Lock()
	p.initCfg = config.MapSource(cfg)
	p.mu.Unlock()

	resolved, err := config.Resolve(p.sources(rt)...)
	p.applyLogging(resolved)
	logger := p.log()

	if err != nil {
		logger.Warn("configuration validation warning", "error", api.NewConfigurationError(err).Error())
	}

	settings := map[string]string{
		config.KeyAPIKey:          resolved.APIKey,
		config.KeyEmbeddingAPIKey: resolved.EmbeddingAPIKey,
	}
	for _, key := range config.RequiredKeys() {
		if settings[key] == "" {
			logger.Warn(key + " is not set - " + missingKeyImpact[key])
		}
	}

	if debug.Enabled("config") {
		debug.Log("config", "debug output enabled",
			"categories", debug.Categories(), "level", debug.Level().String())
	}
	debug.Log("plugin", "resolved settings",
		"base_url", resolved.BaseURL,
		"small_model", resolved.SmallModel,
		"large_model", resolved.LargeModel,
		"embedding_model", resolved.EmbeddingModel,
	)
	return ctx.Err()
}

// applyLogging installs or adjusts logging from the resolved settings.
// Without WithLogOutput the host owns the logger and only the debug
// package state changes.
func (p *Plugin) applyLogging(cfg config.Config) {
	if p.logOutput == nil {
		debug.SetLevel(cfg.LogLevel)
		if cfg.DebugCategories != "" {
			debug.SetCategories(cfg.DebugCategories)
		}
		return
	}
	debug.InitWriter(p.logOutput, cfg.DebugCategories, cfg.LogLevel)

	p.mu.Lock()
	p.logger = slog.Default().With("plugin", Name)
	p.mu.Unlock()
}

func (p *Plugin) log() *slog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Settings resolves the configuration a call against rt would use.
func (p *Plugin) Settings(rt Runtime) config.Config {
	return config.Load(p.sources(rt)...)
}

// sources returns the precedence chain: runtime, environment, init config,
// extra sources.
func (p *Plugin) sources(rt Runtime) []config.Source {
	p.mu.RLock()
	initCfg := p.initCfg
	p.mu.RUnlock()

	srcs := make([]config.Source, 0, 3+len(p.extra))
	if rt != nil {
		srcs = append(srcs, rt)
	}
	srcs = append(srcs, config.EnvSource())
	if initCfg != nil {
		srcs = append(srcs, initCfg)
	}
	return append(srcs, p.extra...)
}

func (p *Plugin) inference(rt Runtime) (*morpheus.Provider, error) {
	cfg := morpheus.FromSettings(p.Settings(rt))
	if rt != nil {
		cfg.SystemPrompt = rt.SystemPrompt()
	}
	cfg.HTTPClient = p.httpClient
	cfg.Logger = p.log()
	return morpheus.New(cfg)
}

func (p *Plugin) textHandler(size provider.ModelSize) TextHandler {
	return func(ctx context.Context, rt Runtime, params provider.TextParams) (string, error) {
		debug.Log("plugin", "text handler entered", "size", size)
		prov, err := p.inference(rt)
		if err != nil {
			return "", err
		}
		return prov.GenerateText(ctx, size, params)
	}
}

func (p *Plugin) objectHandler(size provider.ModelSize) ObjectHandler {
	return func(ctx context.Context, rt Runtime, params provider.ObjectParams) (map[string]any, error) {
		debug.Log("plugin", "object handler entered", "size", size)
		prov, err := p.inference(rt)
		if err != nil {
			return nil, err
		}
		return prov.GenerateObject(ctx, size, params)
	}
}

func (p *Plugin) embed(ctx context.Context, rt Runtime, params provider.EmbeddingParams) ([]float64, error) {
	debug.Log("plugin", "embedding handler entered", "version", Version)
	cfg := openai.FromSettings(p.Settings(rt))
	cfg.HTTPClient = p.httpClient
	cfg.Logger = p.log()
	return openai.New(cfg).Embed(ctx, params)
}
