// Package memory defines memory units and the sink contract that persists and
// retrieves them. Embeddings, ranking and storage are the backend's concern.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// Metadata keys written on every chat-pair unit.
const (
	KeySource            = "source"
	KeyProjectContext    = "project_context"
	KeyConversationID    = "conversation_id"
	KeyConversationTitle = "conversation_title"
	KeyTimestamp         = "timestamp"
	KeyType              = "type"
	KeyTags              = "tags"
)

// Unit is one retrievable artifact: content plus flat string metadata.
type Unit struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Record is a query hit. Higher Score means more relevant; the scale depends
// on the backend.
type Record struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Filter restricts a query to records whose metadata matches every key
// exactly.
type Filter map[string]string

// Sink persists and retrieves memory units.
type Sink interface {
	// Add stores one unit and returns its fresh id. Not idempotent.
	Add(ctx context.Context, content string, metadata map[string]string) (string, error)
	// Query returns up to limit records ranked by relevance. No matches is
	// an empty result, never an error.
	Query(ctx context.Context, text string, limit int, filter Filter) ([]Record, error)
	// Ping checks connectivity. Failures wrap ErrSinkUnavailable.
	Ping(ctx context.Context) error
	Close() error
}

// ErrSinkUnavailable marks connectivity failures, as opposed to empty results.
var ErrSinkUnavailable = errors.New("memory sink unavailable")

// UnavailableError wraps a backend connectivity failure.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSinkUnavailable, e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrSinkUnavailable }

// Unavailable wraps err as a connectivity failure of backend.
func Unavailable(backend string, err error) error {
	return &UnavailableError{Backend: backend, Err: err}
}

// Write stores u through s.
func Write(ctx context.Context, s Sink, u Unit) (string, error) {
	return s.Add(ctx, u.Content, u.Metadata)
}

// AddBatch stores each content with its own copy of metadata. It stops at the
// first failure and returns the ids written so far.
func AddBatch(ctx context.Context, s Sink, contents []string, metadata map[string]string) ([]string, error) {
	ids := make([]string, 0, len(contents))
	for i, c := range contents {
		id, err := s.Add(ctx, c, maps.Clone(metadata))
		if err != nil {
			return ids, fmt.Errorf("add %d of %d: %w", i+1, len(contents), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
