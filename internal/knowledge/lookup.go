package knowledge

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"kaizen/internal/metrics"
)

// LookupRequest asks for exactly one entry per keyword.
type LookupRequest struct {
	Keywords []string `json:"keywords"`
	Scope    string   `json:"scope"`
	TaskSize string   `json:"taskSize,omitempty"`
}

// KeywordMatch is the winning entry for one keyword. Entry is nil when
// nothing in the chain matches.
type KeywordMatch struct {
	Keyword string         `json:"keyword"`
	Entry   *ResolvedEntry `json:"entry,omitempty"`
}

// LookupResult is the outcome of an exact-keyword lookup.
type LookupResult struct {
	Scope   string         `json:"scope"`
	Chain   []string       `json:"chain"`
	Matches []KeywordMatch `json:"matches"`
}

// Lookup resolves each keyword to the single entry whose owning scope has the
// highest chain precedence among all admitted matches. Rank and then entry id
// break ties within a scope.
func (e *Engine) Lookup(ctx context.Context, req LookupRequest) (result *LookupResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "knowledge.Lookup")
	span.SetAttributes(
		attribute.String("scope", req.Scope),
		attribute.Int("keywords", len(req.Keywords)),
	)
	defer func() {
		n := 0
		if result != nil {
			for _, m := range result.Matches {
				if m.Entry != nil {
					n++
				}
			}
		}
		finishSpan(span, n, err)
		metrics.ObserveResolve(metrics.ModeLookup, time.Since(start), n, err)
	}()

	size, err := ParseTaskSize(req.TaskSize)
	if err != nil {
		return nil, err
	}
	filter := SizeFilter{Size: size, Mode: e.cfg.SizeMode}

	err = e.store.View(ctx, func(v View) error {
		chain, err := e.resolver.ResolveChain(ctx, v, req.Scope)
		if err != nil {
			return err
		}
		result = &LookupResult{
			Scope:   chain.Target().ID,
			Chain:   chain.IDs(),
			Matches: make([]KeywordMatch, 0, len(req.Keywords)),
		}

		groups := make([][]string, len(req.Keywords))
		for i, kw := range req.Keywords {
			groups[i] = QueryTerms(kw)
		}
		terms := UnionTerms(groups)
		var found []*Entry
		if len(terms) > 0 {
			found, err = v.SearchEntries(ctx, chain.IDs(), terms)
			if err != nil {
				return err
			}
		}
		ledger := NewLedger(v)

		for i, kw := range req.Keywords {
			match := KeywordMatch{Keyword: kw}
			if len(groups[i]) > 0 && len(found) > 0 {
				scored, err := ledger.Filter(ctx, e.ranker.Rank([][]string{groups[i]}, found))
				if err != nil {
					return err
				}
				match.Entry = pickMostSpecific(scored, chain, filter)
			}
			result.Matches = append(result.Matches, match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func pickMostSpecific(scored []Scored, chain *Chain, filter SizeFilter) *ResolvedEntry {
	var best *ResolvedEntry
	for _, s := range scored {
		if !filter.Admits(s.Entry.TaskSize) {
			continue
		}
		cand := newResolvedEntry(s, chain)
		if best == nil || moreSpecific(cand, *best) {
			best = &cand
		}
	}
	return best
}

func moreSpecific(a, b ResolvedEntry) bool {
	if a.Precedence != b.Precedence {
		return a.Precedence < b.Precedence
	}
	if a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	return a.EntryID < b.EntryID
}
