package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load resolves every setting through sources in order.
//
// For each key the first source returning a non-empty value wins. Keys no
// source provides keep their default. Load never fails: problems such as an
// unparsable dimensionality are recorded and reported by Validate.
func Load(sources ...Source) Config {
	cfg := Defaults()
	r := resolver{sources: sources}

	// Secrets honor <KEY>_FILE when the key itself is absent.
	cfg.APIKey = r.secret(&cfg, KeyAPIKey)
	cfg.EmbeddingAPIKey = r.secret(&cfg, KeyEmbeddingAPIKey)

	r.string(KeySmallModel, &cfg.SmallModel)
	r.string(KeyLargeModel, &cfg.LargeModel)
	r.string(KeyBaseURL, &cfg.BaseURL)
	r.string(KeyEmbeddingModel, &cfg.EmbeddingModel)
	r.string(KeyEmbeddingBaseURL, &cfg.EmbeddingBaseURL)
	r.string(KeyLogLevel, &cfg.LogLevel)
	r.string(KeyDebug, &cfg.DebugCategories)

	if v, ok := r.lookup(KeyEmbeddingDimensions); ok {
		// Only a positive dimensionality is kept; anything else is reported
		// and the model default applies.
		dims, err := strconv.Atoi(v)
		switch {
		case err != nil:
			cfg.issues = append(cfg.issues, FieldError{
				Key:    KeyEmbeddingDimensions,
				Reason: fmt.Sprintf("expected an integer, got %q", v),
			})
		case dims <= 0:
			cfg.issues = append(cfg.issues, FieldError{
				Key:    KeyEmbeddingDimensions,
				Reason: fmt.Sprintf("must be a positive integer, got %d", dims),
			})
		default:
			cfg.EmbeddingDimensions = &dims
		}
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.EmbeddingBaseURL = strings.TrimRight(cfg.EmbeddingBaseURL, "/")

	return cfg
}

// Resolve loads and validates the configuration. The loaded Config is
// returned even when validation fails so callers can run degraded.
func Resolve(sources ...Source) (Config, error) {
	cfg := Load(sources...)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolver walks an ordered source list.
type resolver struct {
	sources []Source
}

// lookup returns the first non-empty value for key, trimmed.
func (r resolver) lookup(key string) (string, bool) {
	for _, src := range r.sources {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// string overwrites *dst if key resolves.
func (r resolver) string(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

// secret resolves key directly, then through its _FILE reference.
func (r resolver) secret(cfg *Config, key string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	path, ok := r.lookup(key + fileSuffix)
	if !ok {
		return ""
	}
	val, err := readSecretFile(path)
	if err != nil {
		cfg.issues = append(cfg.issues, FieldError{
			Key:    key + fileSuffix,
			Reason: err.Error(),
		})
		return ""
	}
	return val
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
