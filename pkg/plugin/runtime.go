package plugin

import "github.com/rhuss/morpheus/pkg/config"

// Runtime is the host handle passed to every capability call. Its settings
// take precedence over the environment.
type Runtime interface {
	config.Source

	// SystemPrompt returns the agent's system prompt, or "" for the default.
	SystemPrompt() string
}

// StaticRuntime is a Runtime backed by fixed values.
type StaticRuntime struct {
	Settings map[string]string
	System   string
}

var _ Runtime = StaticRuntime{}

// Lookup implements config.Source.
func (r StaticRuntime) Lookup(key string) (string, bool) {
	v, ok := r.Settings[key]
	return v, ok
}

// SystemPrompt implements Runtime.
func (r StaticRuntime) SystemPrompt() string {
	return r.System
}
