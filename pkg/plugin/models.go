package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/provider"
)

// ModelType is a capability kind the host dispatches on.
type ModelType string

const (
	TextSmall     ModelType = "TEXT_SMALL"
	TextLarge     ModelType = "TEXT_LARGE"
	ObjectSmall   ModelType = "OBJECT_SMALL"
	ObjectLarge   ModelType = "OBJECT_LARGE"
	TextEmbedding ModelType = "TEXT_EMBEDDING"
)

// ModelTypes lists every kind the plugin registers.
var ModelTypes = []ModelType{TextSmall, TextLarge, ObjectSmall, ObjectLarge, TextEmbedding}

// ParseModelType accepts a kind name in any case, with '-' or '_'.
func ParseModelType(s string) (ModelType, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, mt := range ModelTypes {
		if string(mt) == norm {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown model type %q", s)
}

// Handler signatures per capability.
type (
	TextHandler      func(ctx context.Context, rt Runtime, params provider.TextParams) (string, error)
	ObjectHandler    func(ctx context.Context, rt Runtime, params provider.ObjectParams) (map[string]any, error)
	EmbeddingHandler func(ctx context.Context, rt Runtime, params provider.EmbeddingParams) ([]float64, error)
)

// Models is the capability table.
type Models struct {
	TextSmall     TextHandler
	TextLarge     TextHandler
	ObjectSmall   ObjectHandler
	ObjectLarge   ObjectHandler
	TextEmbedding EmbeddingHandler
}

// Params is the tagged parameter bag of one invocation. Exactly the field
// matching the invoked ModelType must be set.
type Params struct {
	Text      *provider.TextParams
	Object    *provider.ObjectParams
	Embedding *provider.EmbeddingParams
}

// Result holds the output of one invocation. The field matching the
// invoked ModelType is populated.
type Result struct {
	Text      string
	Object    map[string]any
	Embedding []float64
}

// Handle dispatches one invocation through the capability table.
func (p *Plugin) Handle(ctx context.Context, kind ModelType, rt Runtime, params Params) (Result, error) {
	switch kind {
	case TextSmall, TextLarge:
		if params.Text == nil {
			return Result{}, mismatch(kind, "text")
		}
		h := p.Models.TextSmall
		if kind == TextLarge {
			h = p.Models.TextLarge
		}
		if h == nil {
			return Result{}, unregistered(kind)
		}
		text, err := h(ctx, rt, *params.Text)
		return Result{Text: text}, err

	case ObjectSmall, ObjectLarge:
		if params.Object == nil {
			return Result{}, mismatch(kind, "object")
		}
		h := p.Models.ObjectSmall
		if kind == ObjectLarge {
			h = p.Models.ObjectLarge
		}
		if h == nil {
			return Result{}, unregistered(kind)
		}
		obj, err := h(ctx, rt, *params.Object)
		return Result{Object: obj}, err

	case TextEmbedding:
		if params.Embedding == nil {
			return Result{}, mismatch(kind, "embedding")
		}
		if p.Models.TextEmbedding == nil {
			return Result{}, unregistered(kind)
		}
		vec, err := p.Models.TextEmbedding(ctx, rt, *params.Embedding)
		return Result{Embedding: vec}, err

	default:
		return Result{}, api.NewInvalidRequestError("model_type", fmt.Sprintf("unsupported model type %q", kind))
	}
}

func mismatch(kind ModelType, want string) error {
	return api.NewInvalidRequestError("params", fmt.Sprintf("%s requires %s parameters", kind, want))
}

func unregistered(kind ModelType) error {
	return api.NewInvalidRequestError("model_type", fmt.Sprintf("no handler registered for %s", kind))
}
