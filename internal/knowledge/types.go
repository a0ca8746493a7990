package knowledge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"kaizen/internal/errors"
)

const (
	// GlobalNamespace is the built-in root namespace.
	GlobalNamespace = "global"
	// DefaultScopeName names the scope created with every namespace.
	DefaultScopeName = "default"
	// GlobalScopeID is the root of every inheritance chain.
	GlobalScopeID = GlobalNamespace + ":" + DefaultScopeName
)

var namePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Scope is a named container of knowledge entries positioned in the tier graph.
type Scope struct {
	ID          string    `json:"id"`
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	Tier        Tier      `json:"tier"`
	Description string    `json:"description"`
	Parents     []string  `json:"parents"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsDefault reports whether the scope is its namespace's default scope.
func (s *Scope) IsDefault() bool {
	return s.Name == DefaultScopeName
}

// ScopeID joins a namespace and a scope name.
func ScopeID(namespace, name string) string {
	return namespace + ":" + name
}

// DefaultScopeID returns the id of a namespace's default scope.
func DefaultScopeID(namespace string) string {
	return ScopeID(namespace, DefaultScopeName)
}

// SplitScopeID splits "namespace:name" and validates both halves.
func SplitScopeID(id string) (namespace, name string, err error) {
	ns, n, ok := strings.Cut(id, ":")
	if !ok {
		return "", "", errors.NewInvalidParameterError("scope", fmt.Sprintf("%q is not of the form namespace:name", id))
	}
	if err := ValidateName("namespace", ns); err != nil {
		return "", "", err
	}
	if err := ValidateName("scope", n); err != nil {
		return "", "", err
	}
	return ns, n, nil
}

// ValidateName checks a namespace or scope name.
func ValidateName(kind, name string) error {
	if len(name) < 2 || len(name) > 64 {
		return errors.NewInvalidParameterError(kind, "must be 2-64 characters")
	}
	if !namePattern.MatchString(name) {
		return errors.NewInvalidParameterError(kind, "may only contain lowercase letters, digits, '-' and '_'")
	}
	return nil
}

// MetaField is one labelled annotation on an entry.
type MetaField struct {
	Label string `json:"label" yaml:"label" toml:"label"`
	Text  string `json:"text" yaml:"text" toml:"text"`
}

// Metaknowledge is an ordered label to text mapping. It is informational only.
type Metaknowledge []MetaField

// Get returns the text for the first field with the given label.
func (m Metaknowledge) Get(label string) (string, bool) {
	for _, f := range m {
		if f.Label == label {
			return f.Text, true
		}
	}
	return "", false
}

// Entry is a single knowledge item owned by exactly one scope.
type Entry struct {
	ID            string        `json:"id"`
	ScopeID       string        `json:"scopeId"`
	Content       string        `json:"content"`
	Context       string        `json:"context"`
	TaskSize      TaskSize      `json:"taskSize,omitempty"`
	Metaknowledge Metaknowledge `json:"metaknowledge,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ConflictRecord declares that ActiveID supersedes every id in SuppressedIDs.
type ConflictRecord struct {
	ID            string    `json:"id"`
	ActiveID      string    `json:"activeId"`
	SuppressedIDs []string  `json:"suppressedIds"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Normalize sorts and deduplicates the suppressed set.
func (c *ConflictRecord) Normalize() {
	seen := make(map[string]bool, len(c.SuppressedIDs))
	out := c.SuppressedIDs[:0]
	for _, id := range c.SuppressedIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	c.SuppressedIDs = out
}

// Validate checks the record's structural invariants.
func (c *ConflictRecord) Validate() error {
	if strings.TrimSpace(c.ActiveID) == "" {
		return errors.NewConflictRecordInvalidError("active entry id is required")
	}
	if len(c.SuppressedIDs) == 0 {
		return errors.NewConflictRecordInvalidError("at least one suppressed entry id is required")
	}
	for _, id := range c.SuppressedIDs {
		if id == c.ActiveID {
			return errors.NewConflictRecordInvalidError(
				fmt.Sprintf("entry %q cannot suppress itself", id))
		}
	}
	return nil
}

// ResolvedEntry is an entry returned by a resolution, annotated with the
// scope it came from and its relevance.
type ResolvedEntry struct {
	EntryID       string        `json:"entryId"`
	ScopeID       string        `json:"scopeId"`
	Content       string        `json:"content"`
	Context       string        `json:"context"`
	TaskSize      TaskSize      `json:"taskSize,omitempty"`
	Metaknowledge Metaknowledge `json:"metaknowledge,omitempty"`
	Rank          float64       `json:"relevanceRank"`
	// Precedence is the owning scope's position in the chain; 0 is the target.
	Precedence int `json:"precedence"`
}

// Namespace groups scopes under a common prefix.
type Namespace struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Scopes      []*Scope  `json:"scopes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
