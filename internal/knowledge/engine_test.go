package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/errors"
)

// frontendScenario builds the shopcraft frontend example: three "testing"
// entries along the chain, with the frontend entry suppressing the others.
func frontendScenario() *memStore {
	m := newMemStore()
	m.addScope("shopcraft:default", TierProduct, GlobalScopeID)
	m.addScope("shopcraft:frontend-team", TierProject, "shopcraft:default")

	m.addEntry("g-testing", GlobalScopeID,
		"Write unit tests for all business logic before merging",
		"testing unit tests quality", TaskSizeNone)
	m.addEntry("p-testing", "shopcraft:default",
		"Use Jest for testing React components",
		"testing jest react", TaskSizeNone)
	m.addEntry("f-testing", "shopcraft:frontend-team",
		"Use Percy for visual regression testing of every UI component",
		"testing visual regression percy ui", TaskSizeNone)
	m.addEntry("f-deploy", "shopcraft:frontend-team",
		"Deploy the storefront through the CDN pipeline",
		"deploy cdn", TaskSizeNone)

	m.suppress(ConflictRecord{ActiveID: "f-testing", SuppressedIDs: []string{"g-testing", "p-testing"}})
	return m
}

func entryIDs(entries []ResolvedEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.EntryID
	}
	return ids
}

func TestResolve_FrontendScenario(t *testing.T) {
	e := newTestEngine(frontendScenario())

	res, err := e.Resolve(context.Background(), ResolveRequest{
		Queries: []string{"testing", "visual regression", "percy"},
		Scope:   "shopcraft:frontend-team",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Entries)

	assert.Equal(t, "f-testing", res.Entries[0].EntryID)
	assert.Equal(t, "shopcraft:frontend-team", res.Entries[0].ScopeID)
	assert.Equal(t, 0, res.Entries[0].Precedence)
	assert.NotContains(t, entryIDs(res.Entries), "g-testing")
	assert.NotContains(t, entryIDs(res.Entries), "p-testing")
	assert.Equal(t, []string{"shopcraft:frontend-team", "shopcraft:default", "global:default"}, res.Chain)
}

func TestResolve_SuppressionIsAppliedAfterRanking(t *testing.T) {
	m := frontendScenario()
	e := newTestEngine(m)

	// Without the conflict record all three testing entries match.
	m.suppressed = map[string]bool{}
	res, err := e.Resolve(context.Background(), ResolveRequest{Queries: []string{"testing"}, Scope: "shopcraft:frontend-team"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g-testing", "p-testing", "f-testing"}, entryIDs(res.Entries))
	ranks := map[string]float64{}
	for _, r := range res.Entries {
		ranks[r.EntryID] = r.Rank
	}

	m.suppress(ConflictRecord{ActiveID: "f-testing", SuppressedIDs: []string{"g-testing"}})
	res, err = e.Resolve(context.Background(), ResolveRequest{Queries: []string{"testing"}, Scope: "shopcraft:frontend-team"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f-testing", "p-testing"}, entryIDs(res.Entries))
	for _, r := range res.Entries {
		assert.Equal(t, ranks[r.EntryID], r.Rank, "rank of %s changed after suppression", r.EntryID)
	}
}

func TestResolve_EmptyQueries(t *testing.T) {
	m := frontendScenario()
	e := newTestEngine(m)

	for _, queries := range [][]string{nil, {}, {"", "  ", "?!"}} {
		res, err := e.Resolve(context.Background(), ResolveRequest{Queries: queries, Scope: "shopcraft:frontend-team"})
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
	}
	assert.Zero(t, m.searches.Load(), "empty queries must not reach the search primitive")
}

func TestResolve_ScopeNotFound(t *testing.T) {
	e := newTestEngine(frontendScenario())

	for _, queries := range [][]string{{"testing"}, nil} {
		res, err := e.Resolve(context.Background(), ResolveRequest{Queries: queries, Scope: "nonexistent_scope"})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, errors.ScopeNotFound))
		assert.Contains(t, err.Error(), "nonexistent_scope")
	}
}

func TestResolve_NoLexicalMatch(t *testing.T) {
	e := newTestEngine(frontendScenario())
	res, err := e.Resolve(context.Background(), ResolveRequest{Queries: []string{"kubernetes"}, Scope: "shopcraft:frontend-team"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.TotalMatches)
}

func TestResolve_InvalidTaskSize(t *testing.T) {
	e := newTestEngine(frontendScenario())
	_, err := e.Resolve(context.Background(), ResolveRequest{Queries: []string{"testing"}, Scope: "shopcraft:frontend-team", TaskSize: "XXL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.InvalidTaskSizeFilter))
}

func sizedStore() *memStore {
	m := newMemStore()
	m.addScope("acme:default", TierProduct, GlobalScopeID)
	m.addEntry("xs", "acme:default", "rollout notes", "deploy", TaskSizeXS)
	m.addEntry("s", "acme:default", "rollout notes", "deploy", TaskSizeS)
	m.addEntry("m", "acme:default", "rollout notes", "deploy", TaskSizeM)
	m.addEntry("l", "acme:default", "rollout notes", "deploy", TaskSizeL)
	m.addEntry("xl", "acme:default", "rollout notes", "deploy", TaskSizeXL)
	m.addEntry("principle", GlobalScopeID, "rollout notes", "deploy", TaskSizeNone)
	return m
}

func TestResolve_TaskSizeCeiling(t *testing.T) {
	e := newTestEngine(sizedStore())
	ctx := context.Background()

	tests := []struct {
		size string
		want []string
	}{
		{"", []string{"xs", "s", "m", "l", "xl", "principle"}},
		{"XS", []string{"xs", "principle"}},
		{"m", []string{"xs", "s", "m", "principle"}},
		{"XL", []string{"xs", "s", "m", "l", "xl", "principle"}},
	}
	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			res, err := e.Resolve(ctx, ResolveRequest{Queries: []string{"deploy"}, Scope: "acme:default", TaskSize: tt.size})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, entryIDs(res.Entries))
		})
	}
}

func TestResolve_TaskSizeExact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SizeMode = SizeModeExact
	e := NewEngine(sizedStore(), cfg, discardLogger())

	res, err := e.Resolve(context.Background(), ResolveRequest{Queries: []string{"deploy"}, Scope: "acme:default", TaskSize: "XL"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"xl", "principle"}, entryIDs(res.Entries))

	res, err = e.Resolve(context.Background(), ResolveRequest{Queries: []string{"deploy"}, Scope: "acme:default", TaskSize: "XS"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"xs", "principle"}, entryIDs(res.Entries))
}

func TestResolve_TiesGoToMoreSpecificScope(t *testing.T) {
	m := newMemStore()
	m.addScope("acme:default", TierProduct, GlobalScopeID)
	m.addScope("acme:api", TierProject, "acme:default")
	m.addEntry("a-global", GlobalScopeID, "retry with backoff", "retries", TaskSizeNone)
	m.addEntry("z-project", "acme:api", "retry with backoff", "retries", TaskSizeNone)
	m.addEntry("m-product", "acme:default", "retry with backoff", "retries", TaskSizeNone)

	res, err := newTestEngine(m).Resolve(context.Background(), ResolveRequest{Queries: []string{"retries"}, Scope: "acme:api"})
	require.NoError(t, err)
	assert.Equal(t, []string{"z-project", "m-product", "a-global"}, entryIDs(res.Entries))
}

func TestResolve_NoKeywordDeduplication(t *testing.T) {
	m := newMemStore()
	m.addScope("acme:default", TierProduct, GlobalScopeID)
	m.addEntry("c1", "acme:default", "cache reads for 60s", "caching", TaskSizeNone)
	m.addEntry("c2", GlobalScopeID, "never cache auth responses", "caching", TaskSizeNone)

	res, err := newTestEngine(m).Resolve(context.Background(), ResolveRequest{Queries: []string{"caching"}, Scope: "acme:default"})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
}

func TestResolve_Idempotent(t *testing.T) {
	e := newTestEngine(frontendScenario())
	req := ResolveRequest{Queries: []string{"testing", "deploy", "percy"}, Scope: "shopcraft:frontend-team"}

	first, err := e.Resolve(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Entries, again.Entries)
	}
}

func TestResolve_MaxResults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxResults = 2
	e := NewEngine(sizedStore(), cfg, discardLogger())

	res, err := e.Resolve(context.Background(), ResolveRequest{Queries: []string{"deploy"}, Scope: "acme:default"})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.Equal(t, 6, res.TotalMatches)
	assert.True(t, res.Truncated)
}

func TestGroupedByScope(t *testing.T) {
	m := frontendScenario()
	m.suppressed = map[string]bool{}
	res, err := newTestEngine(m).Resolve(context.Background(), ResolveRequest{Queries: []string{"testing"}, Scope: "shopcraft:frontend-team"})
	require.NoError(t, err)

	groups := GroupedByScope(res)
	require.Len(t, groups, 3)
	assert.Equal(t, "shopcraft:frontend-team", groups[0].Scope)
	assert.Equal(t, "shopcraft:default", groups[1].Scope)
	assert.Equal(t, GlobalScopeID, groups[2].Scope)
}

func TestResolveBatch(t *testing.T) {
	e := newTestEngine(frontendScenario())
	reqs := []ResolveRequest{
		{Queries: []string{"percy"}, Scope: "shopcraft:frontend-team"},
		{Queries: []string{"testing"}, Scope: "shopcraft:missing"},
		{Queries: []string{"jest"}, Scope: "shopcraft:default"},
	}

	items, err := e.ResolveBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NotNil(t, items[0].Result)
	assert.Equal(t, []string{"f-testing"}, entryIDs(items[0].Result.Entries))
	require.NotNil(t, items[1].Error)
	assert.Equal(t, errors.ScopeNotFound, items[1].Error.Code)
	require.NotNil(t, items[2].Result)
	assert.Empty(t, items[2].Result.Entries, "p-testing is suppressed")
}

func TestResolveChainThroughEngine(t *testing.T) {
	e := newTestEngine(groupGraph())
	scopes, err := e.ResolveChain(context.Background(), "shopcraft:checkout")
	require.NoError(t, err)
	assert.Len(t, scopes, 5)
}
