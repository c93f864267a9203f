package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)

	logger.Log(t.Context(), LevelTrace, "block fertig", "index", 3)

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("erwartet level=TRACE, bekommen %q", out)
	}
	if !strings.Contains(out, "source=logutil_test.go:") {
		t.Errorf("erwartet gekuerzten Quellpfad, bekommen %q", out)
	}
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("nicht sichtbar")
	logger.Log(t.Context(), LevelTrace, "auch nicht sichtbar")

	if buf.Len() != 0 {
		t.Errorf("erwartet keine Ausgabe, bekommen %q", buf.String())
	}
}

func TestTraceUsesDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("tensor", "shape", "[8 2000]")

	if !strings.Contains(buf.String(), "shape=\"[8 2000]\"") {
		t.Errorf("Trace-Ausgabe fehlt: %q", buf.String())
	}
}
