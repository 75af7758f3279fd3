package hermes

import (
	"encoding/json"
	"testing"
)

func TestIngestRequestParsing(t *testing.T) {
	raw := `{
		"path": "/exports/claude.json",
		"project": "alpha",
		"format": "claude",
		"dry_run": true
	}`

	var req IngestRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("failed to parse IngestRequest: %v", err)
	}

	if req.Path != "/exports/claude.json" {
		t.Errorf("expected path '/exports/claude.json', got '%s'", req.Path)
	}
	if req.Project != "alpha" {
		t.Errorf("expected project 'alpha', got '%s'", req.Project)
	}
	if req.Format != "claude" {
		t.Errorf("expected format 'claude', got '%s'", req.Format)
	}
	if !req.DryRun {
		t.Error("expected dry_run true")
	}
	if req.Force {
		t.Error("expected force false by default")
	}
}

func TestIngestFailedOmitsEmptyPath(t *testing.T) {
	data, err := json.Marshal(IngestFailed{Kind: "decode", Error: "bad json"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["path"]; ok {
		t.Errorf("expected path omitted, got %s", data)
	}
	if m["kind"] != "decode" {
		t.Errorf("expected kind decode, got %v", m["kind"])
	}
}
