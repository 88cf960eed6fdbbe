package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("debug", "json", &buf)
	defer Setup("info", "json", nil)

	logger.WithField("user", "alice").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["user"] != "alice" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestSetupUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("chatty", "text", &buf)
	defer Setup("info", "json", nil)

	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
	if !strings.Contains(buf.String(), "unknown log level") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}
