package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOutput_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer SetOutput(os.Stderr, "info")

	Settlement.Info().Str("transfer", "abc").Msg("export submitted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "settlement" {
		t.Errorf("component = %v, want settlement", entry["component"])
	}
	if entry["transfer"] != "abc" {
		t.Errorf("transfer = %v, want abc", entry["transfer"])
	}
}

func TestWithChain(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info")
	defer SetOutput(os.Stderr, "info")

	l := WithChain("X")
	l.Info().Msg("balance")
	out := buf.String()
	if !strings.Contains(out, `"chain":"X"`) || !strings.Contains(out, `"component":"ledger"`) {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evalanche.log")
	if err := Init("info", true, path); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	defer SetOutput(os.Stderr, "info")

	Agent.Info().Msg("hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing entry: %s", data)
	}
}
