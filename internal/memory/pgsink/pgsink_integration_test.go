//go:build integration

package pgsink

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	table := "memory_units_test_" + uuid.New().String()[:8]
	s, err := Connect(context.Background(), dbURL, WithTableName(table))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.db.Exec(context.Background(), "DROP TABLE IF EXISTS "+s.tableName)
		s.Close()
	})
	return s
}

func TestIntegration_AddAndQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "Context: Deploys\nUser: How do I deploy?\nAssistant: Run make deploy.", map[string]string{
		memory.KeyProjectContext: "alpha",
		memory.KeyType:           "chat_pair",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := s.Add(ctx, "Deploys to staging need approval", map[string]string{
		memory.KeyProjectContext: "beta",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	recs, err := s.Query(ctx, "deploy", 5, memory.Filter{memory.KeyProjectContext: "alpha"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 filtered record, got %d", len(recs))
	}
	if recs[0].Metadata[memory.KeyType] != "chat_pair" {
		t.Errorf("unexpected metadata: %+v", recs[0].Metadata)
	}
	if recs[0].Score <= 0 {
		t.Errorf("expected positive rank, got %v", recs[0].Score)
	}
}
