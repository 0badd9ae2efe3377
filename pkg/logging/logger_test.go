package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(WARN, false)
	log.SetOutput(&buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Error("messages below the configured level should be dropped")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Error("messages at or above the configured level should be written")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(INFO, true)
	log.SetOutput(&buf)

	log.Info("hello", map[string]interface{}{"component": "test"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Level != "INFO" || entry.Message != "hello" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["component"] != "test" {
		t.Errorf("field lost: %+v", entry.Fields)
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(INFO, true)
	log.SetOutput(&buf)

	log.WithField("job", "42").Info("scoped")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Fields["job"] != "42" {
		t.Errorf("context field missing: %+v", entry.Fields)
	}

	buf.Reset()
	log.Info("unscoped")
	entry = LogEntry{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if _, ok := entry.Fields["job"]; ok {
		t.Error("WithField must not mutate the parent logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
		{"FATAL", FATAL},
		{"bogus", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
