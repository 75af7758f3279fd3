package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Ingested is the ledger entry for one export document.
type Ingested struct {
	Path       string    `json:"path,omitempty"`
	Format     string    `json:"format"`
	Project    string    `json:"project"`
	Units      int       `json:"units"`
	Written    int       `json:"written"`
	RunID      string    `json:"run_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

// State is the ingest ledger: export documents already written to the sink,
// keyed by the sha256 of their bytes and the target project. Sink writes are not idempotent, so the
// ledger is what makes re-running an ingest safe.
type State struct {
	StartedAt       time.Time           `json:"started_at"`
	LastProcessedAt time.Time           `json:"last_processed_at"`
	Ingested        map[string]Ingested `json:"ingested"`
	Errors          []string            `json:"errors,omitempty"`

	path string // not serialized
}

// maxErrors caps how many error lines the ledger keeps.
const maxErrors = 200

// LoadState loads the ledger at path, or starts a new one. An empty path
// yields an in-memory ledger that is never written.
func LoadState(path string) (*State, error) {
	p := expandHome(path)
	fresh := &State{
		StartedAt: time.Now().UTC(),
		Ingested:  map[string]Ingested{},
		path:      p,
	}
	if p == "" {
		return fresh, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return fresh, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Ingested == nil {
		s.Ingested = map[string]Ingested{}
	}
	s.path = p
	return &s, nil
}

// Save persists the ledger. It is a no-op for an in-memory ledger.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *State) IsIngested(digest string) bool {
	_, ok := s.Ingested[digest]
	return ok
}

func (s *State) MarkIngested(digest string, entry Ingested) {
	s.Ingested[digest] = entry
}

// AddError records a processing error, dropping the oldest past maxErrors.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
	if len(s.Errors) > maxErrors {
		s.Errors = s.Errors[len(s.Errors)-maxErrors:]
	}
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
