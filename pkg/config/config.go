// Package config resolves the Morpheus plugin settings.
//
// Every setting is a single key looked up through an ordered list of
// sources. The first source holding a non-empty value wins; keys no source
// provides fall back to a static default:
//  1. Host runtime settings
//  2. Process environment
//  3. Extra sources (plugin init config, YAML/TOML file, .env file)
//  4. Built-in defaults
//
// Secret keys additionally honor a <KEY>_FILE reference, and the resolved
// record is checked by [Config.Validate].
package config

// Setting keys. They double as environment variable names.
const (
	KeyAPIKey              = "MORPHEUS_API_KEY"
	KeySmallModel          = "MORPHEUS_SMALL_MODEL"
	KeyLargeModel          = "MORPHEUS_LARGE_MODEL"
	KeyBaseURL             = "MORPHEUS_BASE_URL"
	KeyEmbeddingAPIKey     = "OPENAI_API_KEY"
	KeyEmbeddingModel      = "OPENAI_EMBEDDING_MODEL"
	KeyEmbeddingDimensions = "OPENAI_EMBEDDING_DIMENSIONS"
	KeyEmbeddingBaseURL    = "OPENAI_BASE_URL"
	KeyLogLevel            = "MORPHEUS_LOG_LEVEL"
	KeyDebug               = "MORPHEUS_DEBUG"
	KeyConfigFile          = "MORPHEUS_CONFIG"
)

// fileSuffix marks a key whose value is the path of a secret file.
const fileSuffix = "_FILE"

// Defaults for optional settings.
const (
	DefaultSmallModel       = "llama-3.2-3b"
	DefaultLargeModel       = "llama-3.3-70b"
	DefaultBaseURL          = "http://api.mor.org/api/v1"
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultEmbeddingBaseURL = "https://api.openai.com/v1"
	DefaultLogLevel         = "INFO"
)

// Config holds the resolved plugin settings.
type Config struct {
	// Morpheus inference.
	APIKey     string
	SmallModel string
	LargeModel string
	BaseURL    string

	// OpenAI embeddings.
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingDimensions *int
	EmbeddingBaseURL    string

	// Diagnostics.
	LogLevel        string
	DebugCategories string

	// issues collects problems found while loading (unparsable dimensions,
	// unreadable secret files) so Validate can report them with the rest.
	issues []FieldError
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		SmallModel:       DefaultSmallModel,
		LargeModel:       DefaultLargeModel,
		BaseURL:          DefaultBaseURL,
		EmbeddingModel:   DefaultEmbeddingModel,
		EmbeddingBaseURL: DefaultEmbeddingBaseURL,
		LogLevel:         DefaultLogLevel,
	}
}

// RequiredKeys lists the settings the plugin cannot work without.
func RequiredKeys() []string {
	return []string{KeyAPIKey, KeyEmbeddingAPIKey}
}
