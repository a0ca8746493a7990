package knowledge

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
)

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	scopes     map[string]*Scope
	entries    []*Entry
	suppressed map[string]bool
	searches   atomic.Int32
}

func newMemStore() *memStore {
	m := &memStore{
		scopes:     map[string]*Scope{},
		suppressed: map[string]bool{},
	}
	m.addScope(GlobalScopeID, TierGeneral)
	return m
}

func (m *memStore) addScope(id string, tier Tier, parents ...string) *Scope {
	ns, name, err := SplitScopeID(id)
	if err != nil {
		panic(err)
	}
	s := &Scope{ID: id, Namespace: ns, Name: name, Tier: tier, Parents: parents}
	m.scopes[id] = s
	return s
}

func (m *memStore) addEntry(id, scopeID, content, ctx string, size TaskSize) *Entry {
	e := &Entry{ID: id, ScopeID: scopeID, Content: content, Context: ctx, TaskSize: size}
	m.entries = append(m.entries, e)
	return e
}

func (m *memStore) suppress(rec ConflictRecord) {
	for _, id := range rec.SuppressedIDs {
		m.suppressed[id] = true
	}
}

func (m *memStore) View(ctx context.Context, fn func(View) error) error {
	return fn(m)
}

func (m *memStore) GetScope(ctx context.Context, id string) (*Scope, error) {
	s, ok := m.scopes[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *memStore) SearchEntries(ctx context.Context, scopeIDs []string, terms []string) ([]*Entry, error) {
	m.searches.Add(1)
	inChain := map[string]bool{}
	for _, id := range scopeIDs {
		inChain[id] = true
	}
	want := map[string]bool{}
	for _, t := range terms {
		want[t] = true
	}
	var out []*Entry
	for _, e := range m.entries {
		if !inChain[e.ScopeID] {
			continue
		}
		for _, tok := range Tokenize(e.Context + " " + e.Content) {
			if want[tok] {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SuppressedAmong(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if m.suppressed[id] {
			out[id] = true
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(m *memStore) *Engine {
	return NewEngine(m, DefaultConfig(), discardLogger())
}
