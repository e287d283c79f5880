package morpheus

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/morpheus/pkg/config"
)

// DefaultSystemPrompt is sent when the host supplies no system prompt.
const DefaultSystemPrompt = "You are a helpful assistant."

// Config holds configuration for the Morpheus provider adapter.
type Config struct {
	// BaseURL is the API root, e.g. "http://api.mor.org/api/v1".
	BaseURL string

	// APIKey for Bearer authentication. An empty key sends no Authorization
	// header and the upstream rejects the call.
	APIKey string

	SmallModel string
	LargeModel string

	// SystemPrompt is the system message for every call. Defaults to
	// DefaultSystemPrompt.
	SystemPrompt string

	// HTTPClient is shared across calls. Nil uses a client without timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// FromSettings builds a Config from resolved plugin settings.
func FromSettings(cfg config.Config) Config {
	return Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		SmallModel: cfg.SmallModel,
		LargeModel: cfg.LargeModel,
	}
}
