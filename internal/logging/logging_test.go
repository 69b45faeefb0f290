package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, slog.LevelInfo, "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Info("collection succeeded", "platform", "twitch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if entry["msg"] != "collection succeeded" || entry["platform"] != "twitch" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, slog.LevelWarn, "text")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line emitted below configured level")
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNewWithWriter_UnknownFormat(t *testing.T) {
	if _, err := NewWithWriter(&bytes.Buffer{}, slog.LevelInfo, "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
