package seed

import (
	"context"
	"sort"

	"kaizen/internal/knowledge"
)

// Export builds a bundle of the named namespaces, or of every namespace when
// names is empty. Entry keys are entry ids. Conflict records are included
// only when every entry they mention is part of the export.
func (im *Importer) Export(ctx context.Context, names []string) (*Bundle, error) {
	var list []*knowledge.Namespace
	if len(names) == 0 {
		all, err := im.repos.Namespaces.List(ctx, true)
		if err != nil {
			return nil, err
		}
		list = all
	} else {
		for _, name := range names {
			ns, err := im.repos.Namespaces.Get(ctx, name, true)
			if err != nil {
				return nil, err
			}
			list = append(list, ns)
		}
	}

	b := &Bundle{}
	refs := map[string]string{}
	for _, ns := range list {
		out := Namespace{Name: ns.Name, Description: ns.Description}
		for _, sc := range ns.Scopes {
			scope, err := im.exportScope(ctx, sc, refs)
			if err != nil {
				return nil, err
			}
			out.Scopes = append(out.Scopes, scope)
		}
		b.Namespaces = append(b.Namespaces, out)
	}

	conflicts, err := im.repos.Conflicts.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range conflicts {
		if conflict, ok := exportConflict(c, refs); ok {
			b.Conflicts = append(b.Conflicts, conflict)
		}
	}
	sort.Slice(b.Conflicts, func(i, j int) bool { return b.Conflicts[i].Active < b.Conflicts[j].Active })

	im.logger.Info("Bundle exported",
		"namespaces", len(b.Namespaces),
		"conflicts", len(b.Conflicts),
	)
	return b, nil
}

// exportScope converts a scope and its entries, recording each entry's
// reference in refs
func (im *Importer) exportScope(ctx context.Context, sc *knowledge.Scope, refs map[string]string) (Scope, error) {
	out := Scope{
		Name:        sc.Name,
		Description: sc.Description,
		Tier:        sc.Tier.String(),
	}
	defaultParent := knowledge.DefaultScopeID(sc.Namespace)
	for _, p := range sc.Parents {
		// Implied on import
		if p == defaultParent && !sc.IsDefault() {
			continue
		}
		out.Parents = append(out.Parents, p)
	}

	entries, err := im.repos.Entries.List(ctx, sc.ID)
	if err != nil {
		return Scope{}, err
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, Entry{
			Key:           e.ID,
			Content:       e.Content,
			Context:       e.Context,
			TaskSize:      e.TaskSize.String(),
			Metaknowledge: e.Metaknowledge,
		})
		refs[e.ID] = EntryRef(sc.ID, e.ID)
	}
	return out, nil
}

func exportConflict(c *knowledge.ConflictRecord, refs map[string]string) (Conflict, bool) {
	active, ok := refs[c.ActiveID]
	if !ok {
		return Conflict{}, false
	}
	out := Conflict{Active: active}
	for _, id := range c.SuppressedIDs {
		ref, ok := refs[id]
		if !ok {
			return Conflict{}, false
		}
		out.Suppressed = append(out.Suppressed, ref)
	}
	return out, true
}
