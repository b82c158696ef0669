package logging_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"tutti/internal/logging"
)

// captureHandler records every log record's attributes for inspection.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]string
	levels  []slog.Level
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make(map[string]string)
	rec.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, fields)
	h.levels = append(h.levels, rec.Level)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWarnWithContextInjectsMissingFields(t *testing.T) {
	h := &captureHandler{}
	logger := slog.New(h)

	logging.WarnWithContext(logger, "stem separation failed", "stem_separation_failed",
		logging.String("path", "/music/track.flac"))

	if len(h.records) != 1 {
		t.Fatalf("expected one record, got %d", len(h.records))
	}
	got := h.records[0]
	if got["event_type"] != "stem_separation_failed" {
		t.Fatalf("event_type = %q, want stem_separation_failed", got["event_type"])
	}
	if got["error_hint"] != "check logs for details" {
		t.Fatalf("error_hint default missing, got %q", got["error_hint"])
	}
	if got["impact"] != "operation completed with warnings" {
		t.Fatalf("impact default missing, got %q", got["impact"])
	}
	if got["path"] != "/music/track.flac" {
		t.Fatalf("caller attrs dropped, got %q", got["path"])
	}
	if h.levels[0] != slog.LevelWarn {
		t.Fatalf("level = %v, want warn", h.levels[0])
	}
}

func TestWarnWithContextKeepsCallerFields(t *testing.T) {
	h := &captureHandler{}
	logger := slog.New(h)

	logging.WarnWithContext(logger, "analysis failed, will retry", "analysis_retry",
		logging.String(logging.FieldErrorHint, "item returns to pending automatically"),
		logging.String(logging.FieldImpact, "result delayed by one retry cycle"))

	got := h.records[0]
	if got["error_hint"] != "item returns to pending automatically" {
		t.Fatalf("caller error_hint overridden: %q", got["error_hint"])
	}
	if got["impact"] != "result delayed by one retry cycle" {
		t.Fatalf("caller impact overridden: %q", got["impact"])
	}
}

func TestErrorWithContextInjectsMissingFields(t *testing.T) {
	h := &captureHandler{}
	logger := slog.New(h)

	logging.ErrorWithContext(logger, "analysis failed", "analysis_failed",
		logging.String("status", "failed"))

	got := h.records[0]
	if got["event_type"] != "analysis_failed" {
		t.Fatalf("event_type = %q, want analysis_failed", got["event_type"])
	}
	if got["error_hint"] != "check logs for details" {
		t.Fatalf("error_hint default missing, got %q", got["error_hint"])
	}
	if _, ok := got["impact"]; ok {
		t.Fatal("ErrorWithContext must not inject impact")
	}
	if h.levels[0] != slog.LevelError {
		t.Fatalf("level = %v, want error", h.levels[0])
	}
}

func TestWithContextNilLoggerIsSafe(t *testing.T) {
	logging.WarnWithContext(nil, "ignored", "ignored")
	logging.ErrorWithContext(nil, "ignored", "ignored")
}

func TestDecisionAttrs(t *testing.T) {
	attrs := logging.DecisionAttrs("brass_gate", "revoked", "no positive member and weak generic evidence")
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attrs, got %d", len(attrs))
	}
	want := map[string]string{
		logging.FieldDecisionType: "brass_gate",
		"decision_result":         "revoked",
		"decision_reason":         "no positive member and weak generic evidence",
	}
	for _, a := range attrs {
		if want[a.Key] != a.Value.String() {
			t.Fatalf("attr %s = %q, want %q", a.Key, a.Value.String(), want[a.Key])
		}
		delete(want, a.Key)
	}
	if len(want) != 0 {
		t.Fatalf("missing attrs: %v", want)
	}
}
