package openaicompat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/observability"
)

// deltaFrame renders one SSE data line carrying a content delta.
func deltaFrame(content string) string {
	return fmt.Sprintf(`data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"llama","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content) + "\n\n"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadStream_ConcatenatesDeltasInOrder(t *testing.T) {
	deltas := []string{"  Hello", ",", " wor", "ld", "!\n"}
	var sse strings.Builder
	sse.WriteString(`data: {"id":"chatcmpl-1","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}` + "\n\n")
	for _, d := range deltas {
		sse.WriteString(deltaFrame(d))
	}
	sse.WriteString("data: [DONE]\n")

	text, err := ReadStream(context.Background(), strings.NewReader(sse.String()), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello, world!" {
		t.Errorf("text = %q, want %q", text, "Hello, world!")
	}
}

func TestReadStream_SkipsMalformedFrames(t *testing.T) {
	sse := deltaFrame("alpha") +
		"data: {not json\n\n" +
		deltaFrame(" beta") +
		"data: \n\n" +
		deltaFrame(" gamma") +
		"data: [DONE]\n"

	acc := NewStreamAccumulator("", discardLogger())
	text, err := acc.ReadFrom(context.Background(), strings.NewReader(sse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "alpha beta gamma" {
		t.Errorf("text = %q, want %q", text, "alpha beta gamma")
	}
	if acc.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", acc.Skipped())
	}
	if acc.Frames() != 4 {
		t.Errorf("frames = %d, want 4", acc.Frames())
	}
	if !acc.Done() {
		t.Error("expected [DONE] to be recorded")
	}
}

func TestReadStream_IgnoresNonDataLines(t *testing.T) {
	sse := ": keep-alive\n" +
		"event: message\n" +
		"id: 7\n" +
		deltaFrame("only") +
		"retry: 100\n" +
		"data: [DONE]\n"

	text, err := ReadStream(context.Background(), strings.NewReader(sse), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "only" {
		t.Errorf("text = %q, want %q", text, "only")
	}
}

func TestReadStream_StopsAtDone(t *testing.T) {
	sse := deltaFrame("kept") + "data: [DONE]\n\n" + deltaFrame("dropped")

	text, err := ReadStream(context.Background(), strings.NewReader(sse), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "kept" {
		t.Errorf("text = %q, want %q", text, "kept")
	}
}

func TestReadStream_EndOfStreamWithoutDone(t *testing.T) {
	sse := deltaFrame("no") + deltaFrame(" sentinel")

	text, err := ReadStream(context.Background(), strings.NewReader(sse), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "no sentinel" {
		t.Errorf("text = %q, want %q", text, "no sentinel")
	}
}

func TestReadStream_FramesSplitAcrossReads(t *testing.T) {
	sse := deltaFrame("split") + deltaFrame(" across") + deltaFrame(" reads") + "data: [DONE]\n"

	// OneByteReader forces every frame to straddle many reads.
	r := iotest.OneByteReader(strings.NewReader(sse))
	text, err := ReadStream(context.Background(), r, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "split across reads" {
		t.Errorf("text = %q, want %q", text, "split across reads")
	}
}

func TestReadStream_SkipsOversizedLine(t *testing.T) {
	huge := strings.Repeat("x", 2<<20)
	sse := deltaFrame("a") + deltaFrame(huge) + deltaFrame("b") + "data: [DONE]\n"

	acc := NewStreamAccumulator("", discardLogger())
	text, err := acc.ReadFrom(context.Background(), strings.NewReader(sse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ab" {
		t.Errorf("text = %q, want %q", text, "ab")
	}
	if acc.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", acc.Skipped())
	}
	if !acc.Done() {
		t.Error("expected [DONE] to be reached after the oversized line")
	}
}

func TestReadStream_EmptyChoicesIgnored(t *testing.T) {
	sse := `data: {"id":"chatcmpl-1","choices":[]}` + "\n\n" + deltaFrame("x") + "data: [DONE]\n"

	text, err := ReadStream(context.Background(), strings.NewReader(sse), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "x" {
		t.Errorf("text = %q, want %q", text, "x")
	}
}

func TestReadStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadStream(ctx, strings.NewReader(deltaFrame("a")+deltaFrame("b")), discardLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReadStream_ReadErrorIsTransportError(t *testing.T) {
	r := io.MultiReader(strings.NewReader(deltaFrame("partial")), iotest.ErrReader(errors.New("connection reset")))

	_, err := ReadStream(context.Background(), r, discardLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if !api.IsType(err, api.ErrorTypeTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestStreamAccumulator_LogsSkippedFrames(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	acc := NewStreamAccumulator("", logger)
	acc.AddLine("data: {oops")

	if !strings.Contains(buf.String(), "skipping malformed SSE chunk") {
		t.Errorf("expected skip log line, got %q", buf.String())
	}
	if acc.Text() != "" {
		t.Errorf("expected empty text, got %q", acc.Text())
	}
}

func TestStreamAccumulator_IgnoresLinesAfterDone(t *testing.T) {
	acc := NewStreamAccumulator("", discardLogger())
	if acc.AddLine("data: [DONE]") != true {
		t.Fatal("expected [DONE] to end the stream")
	}
	acc.AddLine(strings.TrimSpace(deltaFrame("late")))
	if acc.Text() != "" {
		t.Errorf("expected no text after [DONE], got %q", acc.Text())
	}
}

func TestStreamAccumulator_RecordsFrameMetrics(t *testing.T) {
	delta := observability.StreamFramesTotal.WithLabelValues("acc-test", observability.FrameDelta)
	skipped := observability.StreamFramesTotal.WithLabelValues("acc-test", observability.FrameSkipped)
	beforeDelta, beforeSkipped := testutil.ToFloat64(delta), testutil.ToFloat64(skipped)

	acc := NewStreamAccumulator("acc-test", discardLogger())
	acc.AddLine(strings.TrimSpace(deltaFrame("a")))
	acc.AddLine(strings.TrimSpace(deltaFrame("b")))
	acc.AddLine("data: nope")

	if got := testutil.ToFloat64(delta) - beforeDelta; got != 2 {
		t.Errorf("delta frames = %f, want 2", got)
	}
	if got := testutil.ToFloat64(skipped) - beforeSkipped; got != 1 {
		t.Errorf("skipped frames = %f, want 1", got)
	}
}
