package knowledge

import (
	"sort"
	"strings"
	"unicode"
)

// RankerConfig holds the zone weights and cut-off of the relevance ranker.
type RankerConfig struct {
	// ContextWeight must exceed ContentWeight.
	ContextWeight float64
	ContentWeight float64
	// Saturation is k in tf/(tf+k).
	Saturation float64
	// MinRelevance drops entries scoring below it.
	MinRelevance float64
}

// DefaultRankerConfig returns the default ranker settings.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		ContextWeight: 1.0,
		ContentWeight: 0.4,
		Saturation:    1.0,
		MinRelevance:  0.1,
	}
}

// Ranker scores entries against query groups with two weighted zones.
//
// For query terms T the score of an entry is
//
//	sum_t (A*sat(tf_context(t)) + B*sat(tf_content(t))) / (|T| * (A+B))
//
// with sat(tf) = tf/(tf+k). Scores fall in [0, 1).
type Ranker struct {
	cfg RankerConfig
}

// NewRanker creates a ranker. Non-positive weights fall back to defaults.
func NewRanker(cfg RankerConfig) *Ranker {
	def := DefaultRankerConfig()
	if cfg.ContextWeight <= 0 {
		cfg.ContextWeight = def.ContextWeight
	}
	if cfg.ContentWeight <= 0 {
		cfg.ContentWeight = def.ContentWeight
	}
	if cfg.Saturation <= 0 {
		cfg.Saturation = def.Saturation
	}
	if cfg.MinRelevance < 0 {
		cfg.MinRelevance = 0
	}
	return &Ranker{cfg: cfg}
}

// Config returns the effective settings.
func (r *Ranker) Config() RankerConfig {
	return r.cfg
}

// Tokenize lowercases s and splits it into runs of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryTerms tokenizes a query phrase into its distinct terms, keeping first
// occurrence order.
func QueryTerms(phrase string) []string {
	tokens := Tokenize(phrase)
	seen := make(map[string]bool, len(tokens))
	terms := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// QueryGroups tokenizes every phrase and drops phrases with no terms.
func QueryGroups(phrases []string) [][]string {
	groups := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		if terms := QueryTerms(p); len(terms) > 0 {
			groups = append(groups, terms)
		}
	}
	return groups
}

// UnionTerms returns the sorted distinct terms across all groups.
func UnionTerms(groups [][]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range groups {
		for _, t := range g {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// document is the term-frequency vector of an entry's two zones.
type document struct {
	context map[string]int
	content map[string]int
}

func newDocument(e *Entry) document {
	return document{
		context: termFrequencies(e.Context),
		content: termFrequencies(e.Content),
	}
}

func termFrequencies(s string) map[string]int {
	tf := map[string]int{}
	for _, t := range Tokenize(s) {
		tf[t]++
	}
	return tf
}

func (r *Ranker) saturate(tf int) float64 {
	if tf == 0 {
		return 0
	}
	f := float64(tf)
	return f / (f + r.cfg.Saturation)
}

func (r *Ranker) score(terms []string, doc document) float64 {
	if len(terms) == 0 {
		return 0
	}
	a, b := r.cfg.ContextWeight, r.cfg.ContentWeight
	var sum float64
	for _, t := range terms {
		sum += a*r.saturate(doc.context[t]) + b*r.saturate(doc.content[t])
	}
	return sum / (float64(len(terms)) * (a + b))
}

// Score returns the relevance of e for one query group.
func (r *Ranker) Score(terms []string, e *Entry) float64 {
	return r.score(terms, newDocument(e))
}

// Scored is an entry with its best group score.
type Scored struct {
	Entry *Entry
	Rank  float64
}

// Rank scores every entry by its best group score and drops entries below
// MinRelevance. The input order is preserved.
func (r *Ranker) Rank(groups [][]string, entries []*Entry) []Scored {
	out := make([]Scored, 0, len(entries))
	for _, e := range entries {
		doc := newDocument(e)
		best := 0.0
		for _, g := range groups {
			if s := r.score(g, doc); s > best {
				best = s
			}
		}
		if best > 0 && best >= r.cfg.MinRelevance {
			out = append(out, Scored{Entry: e, Rank: best})
		}
	}
	return out
}
