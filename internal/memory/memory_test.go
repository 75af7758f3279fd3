package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
	"github.com/MikeSquared-Agency/hivemind/internal/memory/memtest"
)

func TestAddBatch_ReplicatesMetadata(t *testing.T) {
	sink := memtest.New()
	meta := map[string]string{"project_context": "alpha"}

	ids, err := memory.AddBatch(context.Background(), sink, []string{"one", "two", "three"}, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	recs := sink.Records()
	for i, r := range recs {
		if r.Metadata["project_context"] != "alpha" {
			t.Errorf("record %d missing replicated metadata: %+v", i, r.Metadata)
		}
	}

	// Each unit gets its own copy.
	recs[0].Metadata["project_context"] = "mutated"
	if sink.Records()[1].Metadata["project_context"] != "alpha" {
		t.Error("metadata maps must not be shared between units")
	}
	if meta["project_context"] != "alpha" {
		t.Error("caller metadata must not be mutated")
	}
}

func TestAddBatch_StopsOnFailure(t *testing.T) {
	sink := memtest.New()
	sink.AddErr = errors.New("disk full")
	sink.FailAfter = 1

	ids, err := memory.AddBatch(context.Background(), sink, []string{"a", "b", "c"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 id written before failure, got %d", len(ids))
	}
}

func TestUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := memory.Unavailable("chroma", cause)

	if !errors.Is(err, memory.ErrSinkUnavailable) {
		t.Error("expected errors.Is ErrSinkUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if got := err.Error(); got != "memory sink unavailable: chroma: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
}
