package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", "json", &buf)
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger.WithField("ticker", "2330").Info("evaluated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["ticker"] != "2330" || entry["msg"] != "evaluated" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithOutputFallbacks(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("loud", "xml", &buf)
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}
