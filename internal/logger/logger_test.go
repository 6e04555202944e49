package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestNewLogrusLogger_Success(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "aaabridge-*.log")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpfile.Name())

	log, err := NewLogrusLogger(tmpfile.Name(), "debug")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if log == nil {
		t.Fatal("expected logger, got nil")
	}
}

func TestNewLogrusLogger_StdoutOnly(t *testing.T) {
	log, err := NewLogrusLogger("", "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if log == nil {
		t.Fatal("expected logger, got nil")
	}
}

func TestNewLogrusLogger_Failure(t *testing.T) {
	_, err := NewLogrusLogger("/invalid-path/does-not-exist.log", "")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

func TestNewLogrusLogger_BadLevel(t *testing.T) {
	_, err := NewLogrusLogger("", "loud")
	if err == nil {
		t.Fatal("expected error for unknown level, got nil")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogrusLoggerTo(&buf, "", "")
	if err != nil {
		t.Fatalf("NewLogrusLoggerTo: %v", err)
	}

	log.WithFields(map[string]any{"device": "core-1"}).Error(errors.New("unreachable"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["device"] != "core-1" {
		t.Errorf("expected device field, got %v", line)
	}
	if line["level"] != "error" {
		t.Errorf("expected error level, got %v", line["level"])
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Info("dropped")
	log.WithFields(map[string]any{"a": 1}).Warn("dropped")
}

func TestNewLogrusLoggerTo_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogrusLoggerTo(&buf, "", "warn")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	log.Info("dropped")
	log.Warn("kept")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["level"] != "warning" {
		t.Errorf("unexpected entry %v", entry)
	}
}
