package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

func setupTestDB(t *testing.T) (*DB, string) {
	// Create temporary directory for test database
	tmpDir, err := os.MkdirTemp("", "kaizen-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	return db, tmpDir
}

func teardownTestDB(t *testing.T, db *DB, tmpDir string) {
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		t.Errorf("Failed to remove temp dir: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func mustNamespace(t *testing.T, repos *Repositories, name string) {
	t.Helper()
	if _, err := repos.Namespaces.Create(context.Background(), &knowledge.NamespaceInput{Name: name, Description: "test " + name}); err != nil {
		t.Fatalf("Failed to create namespace %s: %v", name, err)
	}
}

func mustScope(t *testing.T, repos *Repositories, id, tier string, parents ...string) *knowledge.Scope {
	t.Helper()
	s, err := repos.Scopes.Create(context.Background(), &knowledge.ScopeInput{
		ID: id, Description: "scope " + id, Tier: tier, Parents: parents,
	})
	if err != nil {
		t.Fatalf("Failed to create scope %s: %v", id, err)
	}
	return s
}

func mustEntry(t *testing.T, repos *Repositories, scope, ctxText, content, size string) *knowledge.Entry {
	t.Helper()
	e, err := repos.Entries.Create(context.Background(), &knowledge.EntryInput{
		ScopeID: scope, Context: ctxText, Content: content, TaskSize: size,
	})
	if err != nil {
		t.Fatalf("Failed to create entry in %s: %v", scope, err)
	}
	return e
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	dbPath := filepath.Join(tmpDir, DatabaseFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}

	// The global root scope is bootstrapped.
	s, err := NewScopeRepository(db).Get(context.Background(), knowledge.GlobalScopeID)
	if err != nil {
		t.Fatalf("Failed to get global scope: %v", err)
	}
	if s.Tier != knowledge.TierGeneral || len(s.Parents) != 0 {
		t.Errorf("Unexpected global scope: %+v", s)
	}
}

func TestReopenRunsMigrations(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer os.RemoveAll(tmpDir)

	if _, err := db.Conn().Exec("UPDATE schema_version SET version = 1"); err != nil {
		t.Fatalf("Failed to downgrade version: %v", err)
	}
	if _, err := db.Conn().Exec("DROP TABLE api_keys"); err != nil {
		t.Fatalf("Failed to drop api_keys: %v", err)
	}
	_ = db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil || version != currentSchemaVersion {
		t.Fatalf("Expected version %d after migration, got %d (%v)", currentSchemaVersion, version, err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM api_keys").Scan(&n); err != nil {
		t.Errorf("api_keys table missing after migration: %v", err)
	}
}

func TestNamespaceRepository(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)

	ns, err := repos.Namespaces.Create(ctx, &knowledge.NamespaceInput{Name: "acme", Description: "Acme Corp"})
	if err != nil {
		t.Fatalf("Failed to create namespace: %v", err)
	}
	if len(ns.Scopes) != 1 || ns.Scopes[0].ID != "acme:default" {
		t.Fatalf("Expected default scope, got %+v", ns.Scopes)
	}
	def := ns.Scopes[0]
	if def.Tier != knowledge.TierProduct || len(def.Parents) != 1 || def.Parents[0] != knowledge.GlobalScopeID {
		t.Errorf("Unexpected default scope: %+v", def)
	}

	_, err = repos.Namespaces.Create(ctx, &knowledge.NamespaceInput{Name: "acme", Description: "again"})
	if !errors.Is(err, errors.AlreadyExists) {
		t.Errorf("Expected ALREADY_EXISTS, got %v", err)
	}
	_, err = repos.Namespaces.Create(ctx, &knowledge.NamespaceInput{Name: "Bad Name", Description: "nope"})
	if !errors.Is(err, errors.InvalidParameter) {
		t.Errorf("Expected INVALID_PARAMETER, got %v", err)
	}

	list, err := repos.Namespaces.List(ctx, false)
	if err != nil {
		t.Fatalf("Failed to list namespaces: %v", err)
	}
	if len(list) != 2 || list[0].Name != "acme" || list[1].Name != "global" {
		t.Errorf("Unexpected namespaces: %+v", list)
	}

	// Rename rewrites scope ids under the namespace.
	mustScope(t, repos, "acme:web", "")
	updated, err := repos.Namespaces.Update(ctx, &knowledge.NamespaceUpdate{Name: "acme", NewName: strPtr("acme2")})
	if err != nil {
		t.Fatalf("Failed to rename namespace: %v", err)
	}
	if updated.Name != "acme2" {
		t.Errorf("Expected acme2, got %s", updated.Name)
	}
	web, err := repos.Scopes.Get(ctx, "acme2:web")
	if err != nil {
		t.Fatalf("Renamed scope not found: %v", err)
	}
	if len(web.Parents) != 1 || web.Parents[0] != "acme2:default" {
		t.Errorf("Parents not renamed: %v", web.Parents)
	}

	_, err = repos.Namespaces.Update(ctx, &knowledge.NamespaceUpdate{Name: "global", Description: strPtr("changed")})
	if !errors.Is(err, errors.ProtectedResource) {
		t.Errorf("Expected PROTECTED_RESOURCE, got %v", err)
	}
	_, err = repos.Namespaces.Delete(ctx, "global")
	if !errors.Is(err, errors.ProtectedResource) {
		t.Errorf("Expected PROTECTED_RESOURCE, got %v", err)
	}
}

func TestNamespaceDeleteCascades(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)

	mustNamespace(t, repos, "acme")
	mustNamespace(t, repos, "other")
	mustScope(t, repos, "acme:web", "")
	mustEntry(t, repos, "acme:web", "frontend", "Use React", "")
	mustEntry(t, repos, "acme:default", "frontend", "Use TypeScript", "M")

	// A scope in another namespace blocks deletion.
	mustScope(t, repos, "other:child", "", "acme:web")
	_, err := repos.Namespaces.Delete(ctx, "acme")
	if !errors.Is(err, errors.ScopeInUse) {
		t.Fatalf("Expected SCOPE_IN_USE, got %v", err)
	}
	if _, err := repos.Scopes.Delete(ctx, "other:child"); err != nil {
		t.Fatalf("Failed to delete child: %v", err)
	}

	res, err := repos.Namespaces.Delete(ctx, "acme")
	if err != nil {
		t.Fatalf("Failed to delete namespace: %v", err)
	}
	if res.DeletedScopes != 2 || res.DeletedEntries != 2 {
		t.Errorf("Unexpected deletion counts: %+v", res)
	}

	var indexed int
	if err := db.QueryRow("SELECT COUNT(*) FROM knowledge_fts WHERE knowledge_fts MATCH 'frontend'").Scan(&indexed); err != nil {
		t.Fatalf("FTS query failed: %v", err)
	}
	if indexed != 0 {
		t.Errorf("Expected FTS to be empty, got %d rows", indexed)
	}
	if _, err := repos.Namespaces.Get(ctx, "acme", false); !errors.Is(err, errors.NamespaceNotFound) {
		t.Errorf("Expected NAMESPACE_NOT_FOUND, got %v", err)
	}
}

func TestScopeRepository(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")

	group := mustScope(t, repos, "acme:auth-group", "GROUP")
	if group.Tier != knowledge.TierGroup {
		t.Errorf("Expected GROUP, got %s", group.Tier)
	}
	web := mustScope(t, repos, "acme:web", "", "acme:auth-group")
	if web.Tier != knowledge.TierProject {
		t.Errorf("Expected default tier PROJECT, got %s", web.Tier)
	}
	if len(web.Parents) != 2 || web.Parents[0] != "acme:auth-group" || web.Parents[1] != "acme:default" {
		t.Errorf("Unexpected parents: %v", web.Parents)
	}

	tests := []struct {
		name string
		in   *knowledge.ScopeInput
		code errors.ErrorCode
	}{
		{"duplicate", &knowledge.ScopeInput{ID: "acme:web", Description: "dup"}, errors.AlreadyExists},
		{"missing namespace", &knowledge.ScopeInput{ID: "nope:web", Description: "x1"}, errors.NamespaceNotFound},
		{"missing parent", &knowledge.ScopeInput{ID: "acme:api", Description: "api", Parents: []string{"acme:ghost"}}, errors.ScopeNotFound},
		{"general with parents", &knowledge.ScopeInput{ID: "acme:base", Description: "base", Tier: "GENERAL", Parents: []string{"acme:web"}}, errors.InvalidParameter},
		{"bad tier", &knowledge.ScopeInput{ID: "acme:x1", Description: "x1", Tier: "TEAM"}, errors.InvalidParameter},
		{"bad id", &knowledge.ScopeInput{ID: "acme", Description: "x1"}, errors.InvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repos.Scopes.Create(ctx, tt.in)
			if !errors.Is(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}

	// Cycle: auth-group -> web while web -> auth-group.
	_, err := repos.Scopes.Update(ctx, &knowledge.ScopeUpdate{ID: "acme:auth-group", AddParents: []string{"acme:web"}})
	if !errors.Is(err, errors.CycleRejected) {
		t.Fatalf("Expected CYCLE_REJECTED, got %v", err)
	}
	g, _ := repos.Scopes.Get(ctx, "acme:auth-group")
	if len(g.Parents) != 1 || g.Parents[0] != "acme:default" {
		t.Errorf("Rejected update changed parents: %v", g.Parents)
	}

	// Replace parents and rename.
	updated, err := repos.Scopes.Update(ctx, &knowledge.ScopeUpdate{
		ID:      "acme:web",
		NewName: strPtr("frontend"),
		Parents: &[]string{"acme:default"},
	})
	if err != nil {
		t.Fatalf("Failed to update scope: %v", err)
	}
	if updated.ID != "acme:frontend" || len(updated.Parents) != 1 {
		t.Errorf("Unexpected updated scope: %+v", updated)
	}

	_, err = repos.Scopes.Update(ctx, &knowledge.ScopeUpdate{ID: "acme:frontend", RemoveParents: []string{"acme:default"}})
	if !errors.Is(err, errors.InvalidParameter) {
		t.Errorf("Expected INVALID_PARAMETER for parentless PROJECT scope, got %v", err)
	}
	_, err = repos.Scopes.Update(ctx, &knowledge.ScopeUpdate{ID: "acme:default", NewName: strPtr("main")})
	if !errors.Is(err, errors.ProtectedResource) {
		t.Errorf("Expected PROTECTED_RESOURCE for default rename, got %v", err)
	}
	_, err = repos.Scopes.Update(ctx, &knowledge.ScopeUpdate{ID: knowledge.GlobalScopeID, Description: strPtr("changed")})
	if !errors.Is(err, errors.ProtectedResource) {
		t.Errorf("Expected PROTECTED_RESOURCE for global scope, got %v", err)
	}

	scopes, err := repos.Scopes.List(ctx, "acme")
	if err != nil {
		t.Fatalf("Failed to list scopes: %v", err)
	}
	if len(scopes) != 3 {
		t.Errorf("Expected 3 scopes, got %d", len(scopes))
	}
}

func TestScopeDelete(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:group", "GROUP")
	mustScope(t, repos, "acme:web", "", "acme:group")
	a := mustEntry(t, repos, "acme:group", "auth", "Use OAuth", "")
	b := mustEntry(t, repos, "acme:web", "auth", "Use sessions", "")
	if _, err := repos.Conflicts.Create(ctx, b.ID, []string{a.ID}); err != nil {
		t.Fatalf("Failed to create conflict: %v", err)
	}

	_, err := repos.Scopes.Delete(ctx, "acme:group")
	if !errors.Is(err, errors.ScopeInUse) {
		t.Fatalf("Expected SCOPE_IN_USE, got %v", err)
	}
	_, err = repos.Scopes.Delete(ctx, "acme:default")
	if !errors.Is(err, errors.ProtectedResource) {
		t.Fatalf("Expected PROTECTED_RESOURCE, got %v", err)
	}

	n, err := repos.Scopes.Delete(ctx, "acme:web")
	if err != nil {
		t.Fatalf("Failed to delete scope: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted entry, got %d", n)
	}
	conflicts, err := repos.Conflicts.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list conflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected conflict to cascade, got %+v", conflicts)
	}
	if _, err := repos.Scopes.Delete(ctx, "acme:group"); err != nil {
		t.Errorf("Expected group deletable after child removal: %v", err)
	}
}

func TestEntryRepository(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:web", "")

	e, err := repos.Entries.Create(ctx, &knowledge.EntryInput{
		ScopeID:  "acme:web",
		Context:  "frontend styling",
		Content:  "Use Tailwind",
		TaskSize: "m",
		Metaknowledge: knowledge.Metaknowledge{
			{Label: "source", Text: "design review"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}
	if e.ID == "" || e.TaskSize != knowledge.TaskSizeM || e.ScopeID != "acme:web" {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if src, ok := e.Metaknowledge.Get("source"); !ok || src != "design review" {
		t.Errorf("Metaknowledge not round-tripped: %+v", e.Metaknowledge)
	}

	_, err = repos.Entries.Create(ctx, &knowledge.EntryInput{ScopeID: "acme:web", Context: "c1", Content: "c2", TaskSize: "XXL"})
	if !errors.Is(err, errors.InvalidTaskSizeFilter) {
		t.Errorf("Expected INVALID_TASK_SIZE_FILTER, got %v", err)
	}
	_, err = repos.Entries.Create(ctx, &knowledge.EntryInput{ScopeID: "acme:ghost", Context: "c1", Content: "c2"})
	if !errors.Is(err, errors.ScopeNotFound) {
		t.Errorf("Expected SCOPE_NOT_FOUND, got %v", err)
	}

	updated, err := repos.Entries.Update(ctx, &knowledge.EntryUpdate{
		ID:            e.ID,
		Content:       strPtr("Use Tailwind v4"),
		ScopeID:       strPtr("acme:default"),
		ClearTaskSize: true,
	})
	if err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if updated.Content != "Use Tailwind v4" || updated.ScopeID != "acme:default" || !updated.TaskSize.IsNone() {
		t.Errorf("Unexpected updated entry: %+v", updated)
	}
	if updated.Context != "frontend styling" {
		t.Errorf("Context should be untouched, got %q", updated.Context)
	}

	list, err := repos.Entries.List(ctx, "acme:default")
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(list) != 1 || list[0].ID != e.ID {
		t.Errorf("Unexpected entries: %+v", list)
	}

	if err := repos.Entries.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if _, err := repos.Entries.Get(ctx, e.ID); !errors.Is(err, errors.EntryNotFound) {
		t.Errorf("Expected ENTRY_NOT_FOUND, got %v", err)
	}
	if err := repos.Entries.Delete(ctx, e.ID); !errors.Is(err, errors.EntryNotFound) {
		t.Errorf("Expected ENTRY_NOT_FOUND on second delete, got %v", err)
	}
}

func TestConflictRepository(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	a := mustEntry(t, repos, "acme:default", "db", "Use Postgres", "")
	b := mustEntry(t, repos, "acme:default", "db", "Use MySQL", "")
	c := mustEntry(t, repos, "acme:default", "db", "Use SQLite", "")

	rec, err := repos.Conflicts.Create(ctx, a.ID, []string{c.ID, b.ID, b.ID})
	if err != nil {
		t.Fatalf("Failed to create conflict: %v", err)
	}
	if len(rec.SuppressedIDs) != 2 {
		t.Errorf("Expected deduplicated suppressed set, got %v", rec.SuppressedIDs)
	}

	tests := []struct {
		name       string
		active     string
		suppressed []string
		code       errors.ErrorCode
	}{
		{"self suppression", a.ID, []string{a.ID}, errors.ConflictRecordInvalid},
		{"empty set", a.ID, nil, errors.ConflictRecordInvalid},
		{"missing active", "", []string{b.ID}, errors.ConflictRecordInvalid},
		{"unknown entry", a.ID, []string{"ghost"}, errors.EntryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repos.Conflicts.Create(ctx, tt.active, tt.suppressed)
			if !errors.Is(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}

	// Suppression is visible through the snapshot view.
	err = db.View(ctx, func(v knowledge.View) error {
		got, err := v.SuppressedAmong(ctx, []string{a.ID, b.ID, c.ID})
		if err != nil {
			return err
		}
		if got[a.ID] || !got[b.ID] || !got[c.ID] {
			t.Errorf("Unexpected suppression set: %v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	// Deleting one suppressed entry keeps the record; deleting the last prunes it.
	if err := repos.Entries.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	got, err := repos.Conflicts.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Conflict should survive: %v", err)
	}
	if len(got.SuppressedIDs) != 1 || got.SuppressedIDs[0] != c.ID {
		t.Errorf("Unexpected suppressed set: %v", got.SuppressedIDs)
	}
	if err := repos.Entries.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if _, err := repos.Conflicts.Get(ctx, rec.ID); !errors.Is(err, errors.ConflictNotFound) {
		t.Errorf("Expected empty conflict to be pruned, got %v", err)
	}
	if err := repos.Conflicts.Delete(ctx, rec.ID); !errors.Is(err, errors.ConflictNotFound) {
		t.Errorf("Expected CONFLICT_NOT_FOUND, got %v", err)
	}
}

func TestViewSearchEntries(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:web", "")
	mustScope(t, repos, "acme:api", "")
	inWeb := mustEntry(t, repos, "acme:web", "frontend testing", "Use Vitest", "")
	mustEntry(t, repos, "acme:api", "frontend testing", "Out of chain", "")
	mustEntry(t, repos, "acme:web", "deployment", "Use Docker", "")

	err := db.View(ctx, func(v knowledge.View) error {
		got, err := v.SearchEntries(ctx, []string{"acme:web", "acme:default"}, []string{"frontend"})
		if err != nil {
			return err
		}
		if len(got) != 1 || got[0].ID != inWeb.ID {
			t.Errorf("Expected only the in-chain match, got %+v", got)
		}

		none, err := v.SearchEntries(ctx, []string{"acme:web"}, nil)
		if err != nil {
			return err
		}
		if len(none) != 0 {
			t.Errorf("Expected no results without terms, got %d", len(none))
		}

		scope, err := v.GetScope(ctx, "acme:missing")
		if err != nil || scope != nil {
			t.Errorf("Expected nil scope for missing id, got %+v (%v)", scope, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestEngineOverStorage(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:frontend-group", "GROUP")
	mustScope(t, repos, "acme:web", "", "acme:frontend-group")

	general := mustEntry(t, repos, knowledge.GlobalScopeID, "frontend", "Write tests", "")
	group := mustEntry(t, repos, "acme:frontend-group", "frontend components", "Use React", "S")
	big := mustEntry(t, repos, "acme:web", "frontend", "Split into micro-frontends", "XL")
	if _, err := repos.Conflicts.Create(ctx, group.ID, []string{general.ID}); err != nil {
		t.Fatalf("Failed to create conflict: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := knowledge.NewEngine(db, knowledge.DefaultConfig(), logger)
	res, err := engine.Resolve(ctx, knowledge.ResolveRequest{
		Queries:  []string{"frontend"},
		Scope:    "acme:web",
		TaskSize: "M",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	ids := map[string]bool{}
	for _, e := range res.Entries {
		ids[e.EntryID] = true
	}
	if !ids[group.ID] || ids[general.ID] || ids[big.ID] {
		t.Errorf("Unexpected entries: %+v", res.Entries)
	}
	wantChain := []string{"acme:web", "acme:frontend-group", "acme:default", knowledge.GlobalScopeID}
	if len(res.Chain) != len(wantChain) {
		t.Fatalf("Unexpected chain %v", res.Chain)
	}
	for i, id := range wantChain {
		if res.Chain[i] != id {
			t.Errorf("chain[%d] = %s, want %s", i, res.Chain[i], id)
		}
	}
}

func TestSpecificEntrySurvivesManyGeneralMatches(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)
	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:api", "")

	general := make([]string, 0, 505)
	for i := 0; i < 505; i++ {
		e := mustEntry(t, repos, knowledge.GlobalScopeID, "caching caching caching",
			fmt.Sprintf("General caching advice %d", i), "")
		general = append(general, e.ID)
	}
	specific := mustEntry(t, repos, "acme:api",
		"caching for the public api gateway and its downstream services",
		"Cache responses at the gateway", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := knowledge.NewEngine(db, knowledge.DefaultConfig(), logger)

	t.Run("lookup prefers the specific scope", func(t *testing.T) {
		res, err := engine.Lookup(ctx, knowledge.LookupRequest{
			Keywords: []string{"caching"},
			Scope:    "acme:api",
		})
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if len(res.Matches) != 1 || res.Matches[0].Entry == nil {
			t.Fatalf("Expected one match, got %+v", res.Matches)
		}
		if got := res.Matches[0].Entry.EntryID; got != specific.ID {
			t.Errorf("Lookup winner = %s, want %s", got, specific.ID)
		}
	})

	if _, err := repos.Conflicts.Create(ctx, specific.ID, general); err != nil {
		t.Fatalf("Failed to create conflict: %v", err)
	}

	t.Run("search leaves out suppressed entries", func(t *testing.T) {
		err := db.View(ctx, func(v knowledge.View) error {
			got, err := v.SearchEntries(ctx, []string{"acme:api", "acme:default", knowledge.GlobalScopeID}, []string{"caching"})
			if err != nil {
				return err
			}
			if len(got) != 1 || got[0].ID != specific.ID {
				t.Errorf("Expected only %s, got %d entries", specific.ID, len(got))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
	})

	t.Run("resolve returns the active entry", func(t *testing.T) {
		res, err := engine.Resolve(ctx, knowledge.ResolveRequest{
			Queries: []string{"caching"},
			Scope:   "acme:api",
		})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(res.Entries) != 1 || res.Entries[0].EntryID != specific.ID {
			t.Errorf("Unexpected entries: %+v", res.Entries)
		}
	})

	t.Run("lookup returns the active entry", func(t *testing.T) {
		res, err := engine.Lookup(ctx, knowledge.LookupRequest{
			Keywords: []string{"caching"},
			Scope:    "acme:api",
		})
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if res.Matches[0].Entry == nil || res.Matches[0].Entry.EntryID != specific.ID {
			t.Errorf("Unexpected lookup match: %+v", res.Matches[0])
		}
	})
}

func TestStats(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)
	ctx := context.Background()
	repos := NewRepositories(db)

	before, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if before.SchemaVersion != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, before.SchemaVersion)
	}
	if before.Entries != 0 || before.Conflicts != 0 {
		t.Errorf("Expected an empty store, got %+v", before)
	}
	if before.SizeBytes+before.WALSizeBytes == 0 {
		t.Error("Expected a non-zero database size")
	}

	mustNamespace(t, repos, "acme")
	mustScope(t, repos, "acme:web", "PROJECT", "acme:default")
	a := mustEntry(t, repos, "acme:web", "review", "Screenshot UI changes", "S")
	b := mustEntry(t, repos, "acme:default", "review", "Skip screenshots", "")
	if _, err := repos.Conflicts.Create(ctx, a.ID, []string{b.ID}); err != nil {
		t.Fatalf("Failed to create conflict: %v", err)
	}

	after, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got := after.Namespaces - before.Namespaces; got != 1 {
		t.Errorf("Expected 1 new namespace, got %d", got)
	}
	// The namespace brings its default scope.
	if got := after.Scopes - before.Scopes; got != 2 {
		t.Errorf("Expected 2 new scopes, got %d", got)
	}
	if after.Entries != 2 || after.Conflicts != 1 {
		t.Errorf("Expected 2 entries and 1 conflict, got %+v", after)
	}
}
