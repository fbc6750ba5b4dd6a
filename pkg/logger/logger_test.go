package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Fatalf("expected debug/info suppressed at warn level, got %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Fatalf("expected warn message, got %s", out)
	}
}

func TestNewEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.Info("hello", "job_id", "srch-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if record["msg"] != "hello" {
		t.Fatalf("expected msg hello, got %v", record["msg"])
	}
	if record["job_id"] != "srch-1" {
		t.Fatalf("expected job_id attribute, got %v", record["job_id"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("bogus", &buf)

	log.Debug("should be suppressed")
	log.Info("should appear")

	out := buf.String()
	if strings.Contains(out, "should be suppressed") {
		t.Fatalf("unknown level should default to info, got %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected info message, got %s", out)
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	old := Default
	defer SetDefault(old)

	SetDefault(NewText("debug", &buf))
	Debug("via package helper")

	if !strings.Contains(buf.String(), "via package helper") {
		t.Fatalf("expected package-level Debug to use the new default logger")
	}
}
