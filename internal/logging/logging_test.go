package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")
	log.Debug().Str("path", "/api/agents/me").Msg("request")
	if !strings.Contains(buf.String(), `"path":"/api/agents/me"`) {
		t.Fatalf("expected debug line, got %s", buf.String())
	}

	buf.Reset()
	log = New(&buf, "bogus")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn fallback, got %s", buf.String())
	}
}

func TestConsoleWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	log := Console(&buf, "info")
	log.Info().Str("source", "store").Msg("api key resolved")
	if !strings.Contains(buf.String(), "api key resolved") || !strings.Contains(buf.String(), "source=store") {
		t.Fatalf("unexpected console output: %s", buf.String())
	}
}
