package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// CapturedRecord is a log record captured for assertions.
type CapturedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type captureState struct {
	mu      sync.Mutex
	records []CapturedRecord
}

// CaptureHandler collects slog records in memory. Handlers derived via
// WithAttrs share the same record sink.
type CaptureHandler struct {
	state *captureState
	attrs []slog.Attr
}

// NewCaptureLogger returns a logger whose output can be inspected.
func NewCaptureLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{state: &captureState{}}
	return slog.New(h), h
}

// NewSilentLogger returns a logger that discards everything.
func NewSilentLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.records = append(h.state.records, CapturedRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CaptureHandler{
		state: h.state,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Records returns a snapshot of the captured records.
func (h *CaptureHandler) Records() []CapturedRecord {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	out := make([]CapturedRecord, len(h.state.records))
	copy(out, h.state.records)
	return out
}

// HasMessage reports whether any captured record contains the substring.
func (h *CaptureHandler) HasMessage(substr string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}
