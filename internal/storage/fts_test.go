package storage

import (
	"context"
	"testing"

	"kaizen/internal/knowledge"
)

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"react"}, `"react"`},
		{"or", []string{"react", "hooks"}, `"react" OR "hooks"`},
		{"blank skipped", []string{" ", "go"}, `"go"`},
		{"quote escaped", []string{`a"b`}, `"a""b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildMatchQuery(tt.terms); got != tt.want {
				t.Errorf("buildMatchQuery(%v) = %q, want %q", tt.terms, got, tt.want)
			}
		})
	}
}

func TestFTSTriggersFollowUpdates(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")

	e := mustEntry(t, repos, "acme:default", "caching", "Use Redis", "")

	count := func(term string) int {
		t.Helper()
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM knowledge_fts WHERE knowledge_fts MATCH ?", buildMatchQuery([]string{term})).Scan(&n); err != nil {
			t.Fatalf("FTS query failed: %v", err)
		}
		return n
	}

	if count("caching") != 1 {
		t.Fatalf("Expected new entry to be indexed")
	}

	if _, err := repos.Entries.Update(ctx, &knowledge.EntryUpdate{ID: e.ID, Context: strPtr("queues")}); err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if count("caching") != 0 || count("queues") != 1 {
		t.Errorf("Index did not follow the update")
	}

	if err := repos.Entries.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if count("queues") != 0 {
		t.Errorf("Index still holds the deleted entry")
	}
}

func TestFTSManager(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustEntry(t, repos, "acme:default", "logging", "Use slog", "")

	manager := NewFTSManager(db)
	if err := manager.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err := manager.Optimize(ctx); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if err := manager.IntegrityCheck(ctx); err != nil {
		t.Fatalf("Integrity check failed: %v", err)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.IndexedEntries != 1 {
		t.Errorf("Expected 1 indexed entry, got %d", stats.IndexedEntries)
	}
	if stats.EstimatedSizeBytes <= 0 {
		t.Errorf("Expected positive size estimate, got %d", stats.EstimatedSizeBytes)
	}
}
