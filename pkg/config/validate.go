package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError is a single failing setting.
type FieldError struct {
	Key    string
	Reason string
}

func (e FieldError) String() string {
	return e.Key + ": " + e.Reason
}

// ValidationError aggregates every failing setting of one validation pass.
type ValidationError struct {
	Issues []FieldError
}

// Error lists each failing key and its reason on its own line.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Issues)+1)
	lines = append(lines, "morpheus configuration validation failed:")
	for _, issue := range e.Issues {
		lines = append(lines, issue.String())
	}
	return strings.Join(lines, "\n")
}

// Has reports whether key is among the failing settings.
func (e *ValidationError) Has(key string) bool {
	for _, issue := range e.Issues {
		if issue.Key == key {
			return true
		}
	}
	return false
}

// Validate checks the configuration for required fields and valid values.
// It returns a *ValidationError listing every problem, or nil.
func (c *Config) Validate() error {
	issues := append([]FieldError(nil), c.issues...)
	add := func(key, reason string) {
		issues = append(issues, FieldError{Key: key, Reason: reason})
	}

	if c.APIKey == "" {
		add(KeyAPIKey, "Morpheus API key is required")
	}
	if c.EmbeddingAPIKey == "" {
		add(KeyEmbeddingAPIKey, "OpenAI API key is required for embeddings")
	}

	for _, f := range []struct{ key, val string }{
		{KeySmallModel, c.SmallModel},
		{KeyLargeModel, c.LargeModel},
		{KeyEmbeddingModel, c.EmbeddingModel},
	} {
		if f.val == "" {
			add(f.key, "must not be empty")
		}
	}

	if c.EmbeddingDimensions != nil && *c.EmbeddingDimensions <= 0 {
		add(KeyEmbeddingDimensions, fmt.Sprintf("must be a positive integer, got %d", *c.EmbeddingDimensions))
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		add(KeyBaseURL, err.Error())
	}
	if err := validateBaseURL(c.EmbeddingBaseURL); err != nil {
		add(KeyEmbeddingBaseURL, err.Error())
	}

	switch strings.ToUpper(c.LogLevel) {
	case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		// valid
	default:
		add(KeyLogLevel, fmt.Sprintf("must be TRACE, DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel))
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host, got %q", raw)
	}
	return nil
}
