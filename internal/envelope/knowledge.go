package envelope

import (
	"time"

	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
)

// ForResolve wraps a ranked resolution. An empty result suggests recording
// knowledge in the target scope.
func ForResolve(res *knowledge.ResolveResult, elapsed time.Duration) *Response {
	b := New().
		Data(res).
		WithResolution(res.Scope, res.Chain, res.TaskSize.String()).
		WithTruncation(res.Truncated, len(res.Entries), res.TotalMatches, "max-results").
		WithDuration(elapsed)
	if len(res.Entries) == 0 {
		b.Suggest("write_knowledge", map[string]interface{}{"scope": res.Scope},
			"No knowledge matched in the scope chain")
	}
	return b.Build()
}

// ForLookup wraps an exact-keyword lookup. Keywords without a match are
// reported as warnings.
func ForLookup(res *knowledge.LookupResult, elapsed time.Duration) *Response {
	b := New().
		Data(res).
		WithResolution(res.Scope, res.Chain, "").
		WithDuration(elapsed)
	for _, m := range res.Matches {
		if m.Entry == nil {
			b.WarningWithCode("NO_MATCH", "no entry matches keyword "+m.Keyword)
		}
	}
	return b.Build()
}

// ForChain wraps an inheritance chain.
func ForChain(chain []*knowledge.Scope) *Response {
	ids := make([]string, len(chain))
	for i, s := range chain {
		ids[i] = s.ID
	}
	b := New().Data(chain)
	if len(ids) > 0 {
		b.WithResolution(ids[0], ids, "")
	}
	return b.Build()
}

// ForEntryWrite wraps a stored entry and surfaces secret findings as
// warnings.
func ForEntryWrite(data interface{}, findings []secrets.Finding) *Response {
	b := New().Data(data)
	for _, f := range findings {
		b.WarningWithCode(secrets.WarningCode, secrets.Describe(f))
	}
	return b.Build()
}
