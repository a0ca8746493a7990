// Package seed imports and exports knowledge bundles: namespaces, scopes,
// entries and conflict records in one YAML, TOML or JSON document.
package seed

import (
	"fmt"
	"strings"

	"kaizen/internal/knowledge"
)

// Bundle is a portable snapshot of part of the knowledge graph.
type Bundle struct {
	Namespaces []Namespace `json:"namespaces" yaml:"namespaces" toml:"namespaces"`
	Conflicts  []Conflict  `json:"conflicts,omitempty" yaml:"conflicts,omitempty" toml:"conflicts,omitempty"`
}

// Namespace is a bundled namespace with its scopes.
type Namespace struct {
	Name        string  `json:"name" yaml:"name" toml:"name"`
	Description string  `json:"description" yaml:"description" toml:"description"`
	Scopes      []Scope `json:"scopes,omitempty" yaml:"scopes,omitempty" toml:"scopes,omitempty"`
}

// Scope is a bundled scope. Name is relative to its namespace and parents
// are full scope ids.
type Scope struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Tier        string   `json:"tier,omitempty" yaml:"tier,omitempty" toml:"tier,omitempty"`
	Parents     []string `json:"parents,omitempty" yaml:"parents,omitempty" toml:"parents,omitempty"`
	Entries     []Entry  `json:"entries,omitempty" yaml:"entries,omitempty" toml:"entries,omitempty"`
}

// Entry is a bundled knowledge entry. Key names the entry inside its scope so
// conflicts can refer to it.
type Entry struct {
	Key           string                  `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Content       string                  `json:"content" yaml:"content" toml:"content"`
	Context       string                  `json:"context" yaml:"context" toml:"context"`
	TaskSize      string                  `json:"taskSize,omitempty" yaml:"taskSize,omitempty" toml:"taskSize,omitempty"`
	Metaknowledge knowledge.Metaknowledge `json:"metaknowledge,omitempty" yaml:"metaknowledge,omitempty" toml:"metaknowledge,omitempty"`
}

// Conflict declares that Active supersedes Suppressed. Both sides use entry
// references of the form "namespace:scope/key".
type Conflict struct {
	Active     string   `json:"active" yaml:"active" toml:"active"`
	Suppressed []string `json:"suppressed" yaml:"suppressed" toml:"suppressed"`
}

// Counts reports what Apply created.
type Counts struct {
	Namespaces int `json:"namespaces"`
	Scopes     int `json:"scopes"`
	Entries    int `json:"entries"`
	Conflicts  int `json:"conflicts"`
	// Secrets counts entries flagged by the secret guard under warn
	Secrets int `json:"secrets,omitempty"`
}

// EntryRef builds the reference conflicts use for an entry.
func EntryRef(scopeID, key string) string {
	return scopeID + "/" + key
}

// Validate checks references that can be verified without a store.
func (b *Bundle) Validate() error {
	keys := map[string]bool{}
	seenNS := map[string]bool{}
	for _, ns := range b.Namespaces {
		if ns.Name == "" {
			return fmt.Errorf("namespace without a name")
		}
		if seenNS[ns.Name] {
			return fmt.Errorf("namespace %s appears twice", ns.Name)
		}
		seenNS[ns.Name] = true

		seenScope := map[string]bool{}
		for _, sc := range ns.Scopes {
			if sc.Name == "" || strings.Contains(sc.Name, ":") {
				return fmt.Errorf("namespace %s: invalid scope name %q", ns.Name, sc.Name)
			}
			if seenScope[sc.Name] {
				return fmt.Errorf("scope %s appears twice", knowledge.ScopeID(ns.Name, sc.Name))
			}
			seenScope[sc.Name] = true

			id := knowledge.ScopeID(ns.Name, sc.Name)
			for _, e := range sc.Entries {
				if e.Key == "" {
					continue
				}
				ref := EntryRef(id, e.Key)
				if keys[ref] {
					return fmt.Errorf("entry key %s appears twice", ref)
				}
				keys[ref] = true
			}
		}
	}

	for i, c := range b.Conflicts {
		for _, ref := range append([]string{c.Active}, c.Suppressed...) {
			if !keys[ref] {
				return fmt.Errorf("conflict %d: unknown entry reference %q", i, ref)
			}
		}
	}
	return nil
}

// Summary counts the objects a bundle holds.
func (b *Bundle) Summary() Counts {
	var c Counts
	c.Namespaces = len(b.Namespaces)
	for _, ns := range b.Namespaces {
		c.Scopes += len(ns.Scopes)
		for _, sc := range ns.Scopes {
			c.Entries += len(sc.Entries)
		}
	}
	c.Conflicts = len(b.Conflicts)
	return c
}
