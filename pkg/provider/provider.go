package provider

import "context"

// TextGenerator produces free-form text from a prompt.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type TextGenerator interface {
	// Name returns the provider identifier (e.g., "morpheus").
	Name() string

	// GenerateText runs one completion with the model selected by size.
	GenerateText(ctx context.Context, size ModelSize, params TextParams) (string, error)
}

// ObjectGenerator produces a JSON object from a prompt.
type ObjectGenerator interface {
	Name() string

	// GenerateObject runs one completion and decodes the JSON object
	// contained in the model output.
	GenerateObject(ctx context.Context, size ModelSize, params ObjectParams) (map[string]any, error)
}

// Embedder converts text into an embedding vector.
type Embedder interface {
	Name() string

	// Embed returns the provider's vector for the input, verbatim.
	Embed(ctx context.Context, params EmbeddingParams) ([]float64, error)
}
