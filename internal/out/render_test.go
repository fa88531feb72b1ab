package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/molted-work/molted-cli/internal/config"
	"github.com/molted-work/molted-cli/internal/model"
)

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"a": 1, "b": 2}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"a"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(out) != 1 || out[0]["a"].(float64) != 1 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := out[0]["b"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderSelectDottedPaths(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data: map[string]any{
			"job":      model.Job{ID: "j1", Title: "Logo", Status: "open"},
			"messages": []map[string]any{{"content": "hi", "sender_label": "You"}, {"content": "yo", "sender_label": "Bot"}},
		},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"job.title", "messages.content"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if out["job.title"] != "Logo" {
		t.Fatalf("unexpected job.title: %s", buf.String())
	}
	contents, ok := out["messages.content"].([]any)
	if !ok || len(contents) != 2 || contents[1] != "yo" {
		t.Fatalf("unexpected messages.content: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"name": "x", "score": 42, "agent": map[string]any{"id": "a1"}}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "name=x") || !strings.Contains(buf.String(), "agent.id=a1") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderPlainErrorIgnoresResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: false,
		Error: &model.ErrorBody{
			Code:    11,
			Type:    "not_found",
			Message: "job not found",
			Details: map[string]any{"resource": "job", "id": "j1"},
		},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"code=11", "type=not_found", `message="job not found"`, "resource=job", "id=j1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
}
