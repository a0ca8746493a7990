package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/errors"
)

func lookupStore() *memStore {
	m := newMemStore()
	m.addScope("acme:default", TierProduct, GlobalScopeID)
	m.addScope("acme:auth-group", TierGroup, "acme:default")
	m.addScope("acme:api", TierProject, "acme:auth-group", "acme:default")

	m.addEntry("g-cache", GlobalScopeID, "cache aggressively, cache everything", "caching cache", TaskSizeNone)
	m.addEntry("p-cache", "acme:default", "cache reads for 60 seconds", "caching", TaskSizeNone)
	m.addEntry("a-tokens", "acme:auth-group", "rotate tokens every 24h", "tokens auth", TaskSizeNone)
	m.addEntry("g-tokens", GlobalScopeID, "tokens must be opaque", "tokens", TaskSizeNone)
	m.addEntry("g-logging", GlobalScopeID, "log in json", "logging", TaskSizeL)
	return m
}

func TestLookup_MostSpecificScopeWins(t *testing.T) {
	e := newTestEngine(lookupStore())

	res, err := e.Lookup(context.Background(), LookupRequest{
		Keywords: []string{"caching", "tokens", "kubernetes"},
		Scope:    "acme:api",
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)

	require.NotNil(t, res.Matches[0].Entry)
	assert.Equal(t, "p-cache", res.Matches[0].Entry.EntryID, "product scope beats a higher-ranked global entry")

	require.NotNil(t, res.Matches[1].Entry)
	assert.Equal(t, "a-tokens", res.Matches[1].Entry.EntryID)
	assert.Equal(t, 1, res.Matches[1].Entry.Precedence)

	assert.Equal(t, "kubernetes", res.Matches[2].Keyword)
	assert.Nil(t, res.Matches[2].Entry)
}

func TestLookup_SkipsSuppressed(t *testing.T) {
	m := lookupStore()
	m.suppress(ConflictRecord{ActiveID: "g-cache", SuppressedIDs: []string{"p-cache"}})

	res, err := newTestEngine(m).Lookup(context.Background(), LookupRequest{Keywords: []string{"caching"}, Scope: "acme:api"})
	require.NoError(t, err)
	require.NotNil(t, res.Matches[0].Entry)
	assert.Equal(t, "g-cache", res.Matches[0].Entry.EntryID)
}

func TestLookup_TaskSizeFilter(t *testing.T) {
	e := newTestEngine(lookupStore())

	res, err := e.Lookup(context.Background(), LookupRequest{Keywords: []string{"logging"}, Scope: "acme:api", TaskSize: "S"})
	require.NoError(t, err)
	assert.Nil(t, res.Matches[0].Entry)

	res, err = e.Lookup(context.Background(), LookupRequest{Keywords: []string{"logging"}, Scope: "acme:api", TaskSize: "XL"})
	require.NoError(t, err)
	require.NotNil(t, res.Matches[0].Entry)
}

func TestLookup_Errors(t *testing.T) {
	e := newTestEngine(lookupStore())

	_, err := e.Lookup(context.Background(), LookupRequest{Keywords: []string{"caching"}, Scope: "acme:ghost"})
	assert.True(t, errors.Is(err, errors.ScopeNotFound))

	_, err = e.Lookup(context.Background(), LookupRequest{Keywords: []string{"caching"}, Scope: "acme:api", TaskSize: "huge"})
	assert.True(t, errors.Is(err, errors.InvalidTaskSizeFilter))
}

func TestLookup_EmptyKeywords(t *testing.T) {
	m := lookupStore()
	res, err := newTestEngine(m).Lookup(context.Background(), LookupRequest{Keywords: []string{"", "!!"}, Scope: "acme:api"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Nil(t, res.Matches[0].Entry)
	assert.Nil(t, res.Matches[1].Entry)
	assert.Zero(t, m.searches.Load())
}
