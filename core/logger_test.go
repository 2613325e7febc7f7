package core

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("app installed", F("app", "blinker"), F("tick", 3))
	logger.Error("app hook panicked", F("panic", "boom"))

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "app=blinker", "tick=3", "level=ERROR", "panic=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("WARN message should appear, got: %s", out)
	}
}

func TestNewSlogLogger_NilFallsBackToDefault(t *testing.T) {
	if NewSlogLogger(nil).logger != slog.Default() {
		t.Fatal("nil logger did not fall back to slog.Default()")
	}
}

func TestDefaultPanicHandler_LogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := &DefaultPanicHandler{
		Logger: NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	}

	handler.HandlePanic("main", GenerateAppID(), "blinker", StateRunning, "boom", []byte("stack"))

	out := buf.String()
	for _, want := range []string{"app hook panicked", "scheduler=main", "app=blinker", "state=running", "panic=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}
