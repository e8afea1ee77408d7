package xlog

import (
	"os"
	"strings"
	"testing"
)

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf strings.Builder
	SetOutput(&buf)
	SetColor(false)
	defer SetOutput(os.Stderr)

	SetDebug(false)
	Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	SetDebug(true)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("expected debug message, got %q", buf.String())
	}
}

func TestInfoIncludesLevelTag(t *testing.T) {
	var buf strings.Builder
	SetOutput(&buf)
	SetColor(false)
	defer SetOutput(os.Stderr)

	Info("hello %s", "world")
	if !strings.Contains(buf.String(), "[INFO] hello world") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
