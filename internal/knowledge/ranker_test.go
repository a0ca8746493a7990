package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"visual", "regression", "ci", "v2"}, Tokenize("Visual-Regression (CI) v2!"))
	assert.Empty(t, Tokenize("  --  "))
}

func TestQueryGroups(t *testing.T) {
	groups := QueryGroups([]string{"Testing testing", "", "  ?! ", "visual regression"})
	assert.Equal(t, [][]string{{"testing"}, {"visual", "regression"}}, groups)
	assert.Equal(t, []string{"regression", "testing", "visual"}, UnionTerms(groups))
}

func TestRanker_ContextOutranksContent(t *testing.T) {
	r := NewRanker(DefaultRankerConfig())
	contentOnly := &Entry{ID: "a", Content: "use a write-through caching strategy", Context: "storage"}
	withContext := &Entry{ID: "b", Content: "use a write-through caching strategy", Context: "caching"}

	terms := QueryTerms("caching")
	assert.Greater(t, r.Score(terms, withContext), r.Score(terms, contentOnly))

	contextOnly := &Entry{ID: "c", Content: "storage", Context: "caching"}
	assert.Greater(t, r.Score(terms, contextOnly), r.Score(terms, contentOnly))
}

func TestRanker_ScoreRange(t *testing.T) {
	r := NewRanker(DefaultRankerConfig())
	e := &Entry{Content: "percy percy percy", Context: "percy percy"}
	s := r.Score([]string{"percy"}, e)
	assert.Greater(t, s, 0.0)
	assert.Less(t, s, 1.0)
	assert.Zero(t, r.Score(nil, e))
	assert.Zero(t, r.Score([]string{"jest"}, e))
}

func TestRanker_Threshold(t *testing.T) {
	r := NewRanker(DefaultRankerConfig())
	weak := &Entry{ID: "weak", Content: "deploy", Context: "ops"}
	strong := &Entry{ID: "strong", Content: "deploy with canary rollback", Context: "deploy canary rollback"}

	scored := r.Rank([][]string{{"deploy", "canary", "rollback", "helm"}}, []*Entry{weak, strong})
	require.Len(t, scored, 1)
	assert.Equal(t, "strong", scored[0].Entry.ID)
}

func TestRanker_BestGroupScore(t *testing.T) {
	r := NewRanker(DefaultRankerConfig())
	e := &Entry{ID: "e", Content: "percy snapshots", Context: "visual regression percy"}
	groups := [][]string{{"jest"}, {"percy"}, {"visual", "unrelated"}}

	scored := r.Rank(groups, []*Entry{e})
	require.Len(t, scored, 1)
	assert.InDelta(t, r.Score([]string{"percy"}, e), scored[0].Rank, 1e-12)
}

func TestNewRanker_Defaults(t *testing.T) {
	r := NewRanker(RankerConfig{MinRelevance: -1})
	cfg := r.Config()
	assert.Equal(t, 1.0, cfg.ContextWeight)
	assert.Equal(t, 0.4, cfg.ContentWeight)
	assert.Equal(t, 1.0, cfg.Saturation)
	assert.Zero(t, cfg.MinRelevance)
}
