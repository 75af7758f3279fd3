// Package memtest provides an in-memory memory.Sink for tests.
package memtest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

// Sink records added units and answers queries by substring match.
type Sink struct {
	mu      sync.Mutex
	records []memory.Record

	// PingErr is returned (wrapped as unavailable) by Ping when set.
	PingErr error
	// AddErr is returned by Add when set.
	AddErr error
	// FailAfter makes Add return AddErr only once this many units are stored.
	FailAfter int

	Pings  int
	Closed bool
}

var _ memory.Sink = (*Sink)(nil)

func New() *Sink { return &Sink{} }

func (s *Sink) Add(_ context.Context, content string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddErr != nil && len(s.records) >= s.FailAfter {
		return "", s.AddErr
	}
	id := fmt.Sprintf("mem-%d", len(s.records)+1)
	s.records = append(s.records, memory.Record{ID: id, Content: content, Metadata: maps.Clone(metadata)})
	return id, nil
}

func (s *Sink) Query(_ context.Context, text string, limit int, filter memory.Filter) ([]memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []memory.Record
	for _, r := range s.records {
		if !matches(r.Metadata, filter) {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Content), strings.ToLower(text)) {
			continue
		}
		r.Score = 1
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Sink) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pings++
	if s.PingErr != nil {
		return memory.Unavailable("memtest", s.PingErr)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Records returns a copy of everything stored.
func (s *Sink) Records() []memory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.Record, len(s.records))
	copy(out, s.records)
	return out
}

func matches(meta map[string]string, filter memory.Filter) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}
