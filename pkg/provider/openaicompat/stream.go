package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/observability"
)

const (
	ssePrefix   = "data: "
	sseDone     = "[DONE]"
	maxLineSize = 1 << 20
)

// StreamAccumulator assembles the text of a streamed chat completion from
// SSE lines. The buffer only grows until the stream completes; malformed
// frames are skipped without touching text already accumulated.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[{"delta":{"content":"Hel"}}]}\n
//	\n
//	data: [DONE]\n
//
// A StreamAccumulator is not safe for concurrent use.
type StreamAccumulator struct {
	// Provider labels frame metrics. Empty disables them.
	Provider string

	logger  *slog.Logger
	buf     strings.Builder
	frames  int
	skipped int
	done    bool
}

// NewStreamAccumulator creates an accumulator. A nil logger uses slog.Default.
func NewStreamAccumulator(provider string, logger *slog.Logger) *StreamAccumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamAccumulator{Provider: provider, logger: logger}
}

// AddLine feeds one SSE line and reports whether the stream signaled completion.
// Lines after completion are ignored.
func (a *StreamAccumulator) AddLine(line string) bool {
	if a.done {
		return true
	}

	// SSE lines that don't start with "data: " are ignored
	// (e.g., empty lines, event names, comments starting with ":").
	if !strings.HasPrefix(line, ssePrefix) {
		return false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, ssePrefix))
	if payload == "" {
		return false
	}
	if payload == sseDone {
		a.done = true
		return true
	}

	a.frames++

	var chunk ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		a.skipped++
		a.count(observability.FrameSkipped)
		a.logger.Debug("skipping malformed SSE chunk",
			"debug", "streaming",
			"error", err.Error(),
			"data", debug.Truncate(payload, 200),
		)
		return false
	}

	a.count(observability.FrameDelta)
	if len(chunk.Choices) == 0 {
		return false
	}
	if c := chunk.Choices[0].Delta.Content; c != nil {
		a.buf.WriteString(*c)
	}
	return false
}

// Text returns the accumulated text with surrounding whitespace trimmed.
func (a *StreamAccumulator) Text() string {
	return strings.TrimSpace(a.buf.String())
}

// Frames returns the number of data frames seen, excluding [DONE].
func (a *StreamAccumulator) Frames() int { return a.frames }

// Skipped returns the number of data frames that failed to parse.
func (a *StreamAccumulator) Skipped() int { return a.skipped }

// Done reports whether the [DONE] sentinel was seen.
func (a *StreamAccumulator) Done() bool { return a.done }

func (a *StreamAccumulator) count(outcome string) {
	if a.Provider == "" {
		return
	}
	observability.StreamFramesTotal.WithLabelValues(a.Provider, outcome).Inc()
}

// ReadFrom reads body line by line until [DONE], end of stream, or context
// cancellation, and returns the trimmed text. Frames split across network
// reads are reassembled. A line longer than maxLineSize is discarded up to
// its newline and counted as a skipped frame.
func (a *StreamAccumulator) ReadFrom(ctx context.Context, body io.Reader) (string, error) {
	r := bufio.NewReaderSize(body, 64*1024)
	line := make([]byte, 0, 4096)
	discarding := false

	for {
		// Check for context cancellation between reads.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		frag, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Context cancellation is reported as such, not as a read error.
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			a.logger.Error("SSE stream read failed", "error", err.Error())
			return "", MapNetworkError(err)
		}

		switch {
		case discarding:
		case len(line)+len(frag) > maxLineSize:
			a.skipOversized(len(line) + len(frag))
			discarding = true
			line = line[:0]
		default:
			line = append(line, frag...)
		}
		if isPrefix {
			continue
		}

		if !discarding && a.AddLine(string(line)) {
			break
		}
		discarding = false
		line = line[:0]
	}

	if a.skipped > 0 {
		debug.Log("streaming", "stream finished with skipped frames",
			"frames", a.frames, "skipped", a.skipped)
	}
	return a.Text(), nil
}

// skipOversized records a line dropped for exceeding maxLineSize.
func (a *StreamAccumulator) skipOversized(seen int) {
	a.frames++
	a.skipped++
	a.count(observability.FrameSkipped)
	a.logger.Debug("skipping oversized SSE line",
		"debug", "streaming",
		"bytes_seen", seen,
		"limit", maxLineSize,
	)
}

// ReadStream reads a chat completion SSE body to completion and returns the
// concatenated delta text. No frame metrics are recorded.
func ReadStream(ctx context.Context, body io.Reader, logger *slog.Logger) (string, error) {
	return NewStreamAccumulator("", logger).ReadFrom(ctx, body)
}
