package seed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
	"kaizen/internal/storage"
)

// Importer creates bundle contents through the repositories.
type Importer struct {
	repos  *storage.Repositories
	guard  *secrets.Guard
	logger *slog.Logger
}

// NewImporter creates an importer
func NewImporter(repos *storage.Repositories, logger *slog.Logger) *Importer {
	return &Importer{repos: repos, logger: logger}
}

// WithGuard scans every bundle entry for secrets before Apply writes
// anything.
func (im *Importer) WithGuard(g *secrets.Guard) *Importer {
	im.guard = g
	return im
}

// scanSecrets runs the guard over every entry. Under reject the first
// flagged entry aborts the import.
func (im *Importer) scanSecrets(b *Bundle) (int, error) {
	flagged := 0
	for _, ns := range b.Namespaces {
		for _, sc := range ns.Scopes {
			for _, e := range sc.Entries {
				content, keywords := e.Content, e.Context
				findings, err := im.guard.Check(secrets.EntryFields(&content, &keywords, e.Metaknowledge)...)
				if err != nil {
					return flagged, fmt.Errorf("entry %s: %w", EntryRef(knowledge.ScopeID(ns.Name, sc.Name), e.Key), err)
				}
				if len(findings) > 0 {
					flagged++
				}
			}
		}
	}
	return flagged, nil
}

// Apply creates everything in the bundle in dependency order: namespaces,
// then scopes with parents before children, then entries and conflicts.
// Namespaces and default scopes that already exist are reused. Each object
// is written in its own transaction, so a failure leaves earlier objects in
// place and the error names the object that failed.
func (im *Importer) Apply(ctx context.Context, b *Bundle) (*Counts, error) {
	if err := b.Validate(); err != nil {
		return nil, errors.NewInvalidParameterError("bundle", err.Error())
	}
	flagged, err := im.scanSecrets(b)
	if err != nil {
		return nil, err
	}
	counts := &Counts{Secrets: flagged}

	for _, ns := range b.Namespaces {
		created, err := im.ensureNamespace(ctx, ns)
		if err != nil {
			return counts, err
		}
		if created {
			counts.Namespaces++
		}
	}

	scopes, err := orderScopes(b)
	if err != nil {
		return counts, err
	}
	for _, ps := range scopes {
		created, err := im.ensureScope(ctx, ps)
		if err != nil {
			return counts, err
		}
		if created {
			counts.Scopes++
		}
	}

	refs := map[string]string{}
	for _, ps := range scopes {
		for _, e := range ps.scope.Entries {
			entry, err := im.repos.Entries.Create(ctx, &knowledge.EntryInput{
				ScopeID:       ps.id,
				Content:       e.Content,
				Context:       e.Context,
				TaskSize:      e.TaskSize,
				Metaknowledge: e.Metaknowledge,
			})
			if err != nil {
				return counts, fmt.Errorf("entry %s: %w", EntryRef(ps.id, e.Key), err)
			}
			counts.Entries++
			if e.Key != "" {
				refs[EntryRef(ps.id, e.Key)] = entry.ID
			}
		}
	}

	for _, c := range b.Conflicts {
		suppressed := make([]string, len(c.Suppressed))
		for i, ref := range c.Suppressed {
			suppressed[i] = refs[ref]
		}
		if _, err := im.repos.Conflicts.Create(ctx, refs[c.Active], suppressed); err != nil {
			return counts, fmt.Errorf("conflict %s: %w", c.Active, err)
		}
		counts.Conflicts++
	}

	im.logger.Info("Bundle applied",
		"namespaces", counts.Namespaces,
		"scopes", counts.Scopes,
		"entries", counts.Entries,
		"conflicts", counts.Conflicts,
	)
	return counts, nil
}

func (im *Importer) ensureNamespace(ctx context.Context, ns Namespace) (bool, error) {
	_, err := im.repos.Namespaces.Get(ctx, ns.Name, false)
	if err == nil {
		im.logger.Debug("Namespace exists, reusing", "namespace", ns.Name)
		return false, nil
	}
	if !errors.Is(err, errors.NamespaceNotFound) {
		return false, err
	}
	if _, err := im.repos.Namespaces.Create(ctx, &knowledge.NamespaceInput{
		Name:        ns.Name,
		Description: ns.Description,
	}); err != nil {
		return false, fmt.Errorf("namespace %s: %w", ns.Name, err)
	}
	return true, nil
}

// ensureScope creates a scope. Default scopes come with their namespace and
// are never created here.
func (im *Importer) ensureScope(ctx context.Context, ps plannedScope) (bool, error) {
	if ps.scope.Name == knowledge.DefaultScopeName {
		return false, nil
	}
	if _, err := im.repos.Scopes.Create(ctx, &knowledge.ScopeInput{
		ID:          ps.id,
		Description: ps.scope.Description,
		Tier:        ps.scope.Tier,
		Parents:     ps.scope.Parents,
	}); err != nil {
		return false, fmt.Errorf("scope %s: %w", ps.id, err)
	}
	return true, nil
}

type plannedScope struct {
	id    string
	scope Scope
}

// orderScopes sorts bundle scopes so every parent defined in the bundle
// comes before its children. Parents outside the bundle must already exist
// and are checked by the store. A cycle among bundle scopes is rejected.
func orderScopes(b *Bundle) ([]plannedScope, error) {
	pending := map[string]plannedScope{}
	for _, ns := range b.Namespaces {
		for _, sc := range ns.Scopes {
			id := knowledge.ScopeID(ns.Name, sc.Name)
			pending[id] = plannedScope{id: id, scope: sc}
		}
	}

	ordered := make([]plannedScope, 0, len(pending))
	for len(pending) > 0 {
		var ready []string
		for id, ps := range pending {
			blocked := false
			for _, p := range ps.scope.Parents {
				if _, waiting := pending[p]; waiting && p != id {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			stuck := make([]string, 0, len(pending))
			for id := range pending {
				stuck = append(stuck, id)
			}
			sort.Strings(stuck)
			return nil, errors.NewCycleRejectedError(stuck[0], fmt.Sprintf("%v", stuck))
		}
		sort.Strings(ready)
		for _, id := range ready {
			ordered = append(ordered, pending[id])
			delete(pending, id)
		}
	}
	return ordered, nil
}
