// Package debug provides category-based debug logging for the Morpheus plugin.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): the MORPHEUS_DEBUG setting
//   - Levels (HOW MUCH detail): the MORPHEUS_LOG_LEVEL setting
//
// Usage:
//
//	debug.Log("providers", "request", "method", "POST", "url", url)
//	if debug.Enabled("streaming") { /* expensive formatting */ }
//
// Categories: providers, streaming, embeddings, config, plugin, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, full untruncated request and response bodies are logged.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
var categories atomic.Pointer[map[string]bool]

// level gates handlers installed by Init. SetLevel adjusts it afterwards.
var level slog.LevelVar

func init() {
	// Initialize from the environment so output is available before the
	// plugin's Init resolves the full settings chain.
	setCategories(os.Getenv("MORPHEUS_DEBUG"))
}

// Init configures the debug system from resolved settings and installs a
// text handler on stderr as the default slog logger.
func Init(cats string, lvl string) {
	InitWriter(os.Stderr, cats, lvl)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, cats string, lvl string) {
	setCategories(cats)
	level.Set(ParseLevel(lvl))
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: &level,
	})))
}

// SetLevel changes the level of every handler installed by Init or
// InitWriter. Loggers a host built itself are not affected.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// Level returns the level applied to handlers installed by Init.
func Level() slog.Level {
	return level.Level()
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
// Only visible when MORPHEUS_LOG_LEVEL=TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the list of enabled categories.
func Categories() []string {
	var result []string
	for k := range *categories.Load() {
		result = append(result, k)
	}
	return result
}

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// SetCategories replaces the enabled categories without touching the
// default logger. Hosts that own logging use this instead of Init.
func SetCategories(cats string) {
	setCategories(cats)
}

func setCategories(s string) {
	m := parseCategories(s)
	categories.Store(&m)
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
