package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewAppliesLevel(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, err := New("warn", format)
		if err != nil {
			t.Fatalf("New(warn, %q) error = %v", format, err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("format %q: info enabled at warn level", format)
		}
		if !logger.Core().Enabled(zapcore.ErrorLevel) {
			t.Fatalf("format %q: error disabled at warn level", format)
		}
	}
}

func TestNewRejectsUnknownInputs(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("New(loud) error = nil, want parse error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("New(info, xml) error = nil, want format error")
	}
}
