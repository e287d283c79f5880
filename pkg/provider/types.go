package provider

import (
	"fmt"

	"github.com/rhuss/morpheus/pkg/api"
)

// ModelSize selects between the configured small and large model.
type ModelSize string

const (
	SizeSmall ModelSize = "small"
	SizeLarge ModelSize = "large"
)

// Sampling defaults applied when a caller leaves a field unset.
const (
	DefaultTemperature       = 0.7
	DefaultObjectTemperature = 0.0
	DefaultMaxTokens         = 8192
	DefaultFrequencyPenalty  = 0.7
	DefaultPresencePenalty   = 0.7
)

// TextParams are the inputs of a text generation call. Nil pointer fields
// take the package defaults.
type TextParams struct {
	Prompt           string
	Temperature      *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// Validate checks the prompt and every override that is set.
func (p TextParams) Validate() error {
	if p.Prompt == "" {
		return api.NewInvalidRequestError("prompt", "prompt must not be empty")
	}
	if err := checkTemperature(p.Temperature); err != nil {
		return err
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return api.NewInvalidRequestError("max_tokens", fmt.Sprintf("must be positive, got %d", *p.MaxTokens))
	}
	if err := checkPenalty("frequency_penalty", p.FrequencyPenalty); err != nil {
		return err
	}
	return checkPenalty("presence_penalty", p.PresencePenalty)
}

// WithDefaults returns a copy with every unset sampling field filled in.
func (p TextParams) WithDefaults() TextParams {
	if p.Temperature == nil {
		p.Temperature = ptr(DefaultTemperature)
	}
	if p.MaxTokens == nil {
		p.MaxTokens = ptr(DefaultMaxTokens)
	}
	if p.FrequencyPenalty == nil {
		p.FrequencyPenalty = ptr(DefaultFrequencyPenalty)
	}
	if p.PresencePenalty == nil {
		p.PresencePenalty = ptr(DefaultPresencePenalty)
	}
	return p
}

// ObjectParams are the inputs of a structured-object generation call.
// Temperature defaults to zero; the remaining sampling controls are fixed.
type ObjectParams struct {
	Prompt      string
	Temperature *float64
}

// Validate checks the prompt and the temperature override.
func (p ObjectParams) Validate() error {
	if p.Prompt == "" {
		return api.NewInvalidRequestError("prompt", "prompt must not be empty")
	}
	return checkTemperature(p.Temperature)
}

// EmbeddingParams are the inputs of an embedding call. Text is embedded;
// Prompt is used when Text is empty.
type EmbeddingParams struct {
	Text   string
	Prompt string
}

// Input returns the string to embed.
func (p EmbeddingParams) Input() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Prompt
}

// Validate rejects params with nothing to embed.
func (p EmbeddingParams) Validate() error {
	if p.Input() == "" {
		return api.NewInvalidRequestError("text", "text must not be empty")
	}
	return nil
}

func checkTemperature(t *float64) error {
	if t != nil && (*t < 0 || *t > 2) {
		return api.NewInvalidRequestError("temperature", fmt.Sprintf("must be between 0 and 2, got %g", *t))
	}
	return nil
}

func checkPenalty(param string, v *float64) error {
	if v != nil && (*v < -2 || *v > 2) {
		return api.NewInvalidRequestError(param, fmt.Sprintf("must be between -2 and 2, got %g", *v))
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
