package morpheus

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/provider"
)

// JSONInstruction is appended to every object-generation prompt.
const JSONInstruction = "\n\nPlease provide your response strictly in JSON format. Do not include any explanatory text before or after the JSON object."

// objectPattern spans from the first '{' to the last '}'. It is a heuristic:
// trailing commentary containing braces is captured too.
var objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// GenerateObject asks the model for strict JSON and decodes the object in
// its reply. Temperature defaults to zero; max tokens and both penalties
// are fixed at the text defaults.
func (p *Provider) GenerateObject(ctx context.Context, size provider.ModelSize, params provider.ObjectParams) (map[string]any, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	temperature := provider.DefaultObjectTemperature
	if params.Temperature != nil {
		temperature = *params.Temperature
	}
	text, err := p.complete(ctx, size, provider.TextParams{
		Prompt:      params.Prompt + JSONInstruction,
		Temperature: &temperature,
	}.WithDefaults())
	if err != nil {
		return nil, err
	}

	obj, err := ExtractObject(text)
	if err != nil {
		p.logger.Error("failed to parse JSON response",
			"model", p.Model(size),
			"response", debug.Truncate(text, 2000),
			"error", err.Error(),
		)
		return nil, err
	}
	return obj, nil
}

// ExtractObject decodes the brace-delimited span of text.
//
// Text without any '{' fails with api.ErrNoJSONObject and no parse is
// attempted. A span that does not decode, or an opening brace that is never
// closed, fails with api.ErrInvalidJSON. Both are parse errors.
func ExtractObject(text string) (map[string]any, error) {
	match := objectPattern.FindString(text)
	if match == "" {
		if strings.Contains(text, "{") {
			return nil, api.NewParseError(fmt.Errorf("%w: unterminated object", api.ErrInvalidJSON))
		}
		return nil, api.NewParseError(api.ErrNoJSONObject)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(match), &obj); err != nil {
		return nil, api.NewParseError(fmt.Errorf("%w: %v", api.ErrInvalidJSON, err))
	}
	return obj, nil
}
