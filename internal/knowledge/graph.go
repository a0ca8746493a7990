package knowledge

import (
	"context"
	"fmt"
	"sort"

	"kaizen/internal/errors"
)

// DefaultMaxChainDepth bounds ancestor traversal.
const DefaultMaxChainDepth = 32

// ScopeReader reads scopes from a consistent view of the graph.
// GetScope returns (nil, nil) when the scope does not exist.
type ScopeReader interface {
	GetScope(ctx context.Context, id string) (*Scope, error)
}

// Chain is the precedence-ordered inheritance chain of a scope.
// Scopes[0] is the target scope.
type Chain struct {
	Scopes []*Scope
	index  map[string]int
}

// IDs returns the scope ids in precedence order.
func (c *Chain) IDs() []string {
	ids := make([]string, len(c.Scopes))
	for i, s := range c.Scopes {
		ids[i] = s.ID
	}
	return ids
}

// Precedence returns the chain position of a scope, or -1 when it is not in
// the chain.
func (c *Chain) Precedence(scopeID string) int {
	if i, ok := c.index[scopeID]; ok {
		return i
	}
	return -1
}

// Target returns the scope the chain was resolved for.
func (c *Chain) Target() *Scope {
	return c.Scopes[0]
}

// Resolver computes inheritance chains over a ScopeReader.
type Resolver struct {
	maxDepth int
}

// NewResolver creates a resolver. maxDepth <= 0 selects DefaultMaxChainDepth.
func NewResolver(maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxChainDepth
	}
	return &Resolver{maxDepth: maxDepth}
}

// ResolveChain returns the target scope followed by its ancestors, grouped by
// tier from most to least specific and ordered by name within a tier.
func (r *Resolver) ResolveChain(ctx context.Context, reader ScopeReader, scopeID string) (*Chain, error) {
	target, err := reader.GetScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.NewScopeNotFoundError(scopeID)
	}

	w := &walker{
		ctx:      ctx,
		reader:   reader,
		maxDepth: r.maxDepth,
		state:    map[string]int{},
		scopes:   map[string]*Scope{target.ID: target},
	}
	if err := w.visit(target, 0); err != nil {
		return nil, err
	}

	ancestors := make([]*Scope, 0, len(w.scopes)-1)
	for id, s := range w.scopes {
		if id != target.ID {
			ancestors = append(ancestors, s)
		}
	}
	sort.Slice(ancestors, func(i, j int) bool {
		a, b := ancestors[i], ancestors[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	chain := &Chain{
		Scopes: append([]*Scope{target}, ancestors...),
		index:  make(map[string]int, len(ancestors)+1),
	}
	for i, s := range chain.Scopes {
		chain.index[s.ID] = i
	}
	return chain, nil
}

const (
	visiting = 1
	visited  = 2
)

// walker is a depth-first ancestor traversal that detects back edges.
type walker struct {
	ctx      context.Context
	reader   ScopeReader
	maxDepth int
	state    map[string]int
	scopes   map[string]*Scope
}

func (w *walker) visit(s *Scope, depth int) error {
	if depth > w.maxDepth {
		return errors.NewGraphInconsistentError(
			fmt.Sprintf("inheritance chain of %q exceeds depth %d", s.ID, w.maxDepth))
	}
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.state[s.ID] = visiting
	for _, pid := range s.Parents {
		switch w.state[pid] {
		case visiting:
			return errors.NewGraphInconsistentError(
				fmt.Sprintf("cycle detected between %q and %q", s.ID, pid))
		case visited:
			continue
		}
		parent, ok := w.scopes[pid]
		if !ok {
			var err error
			parent, err = w.reader.GetScope(w.ctx, pid)
			if err != nil {
				return err
			}
			if parent == nil {
				return errors.NewGraphInconsistentError(
					fmt.Sprintf("scope %q references missing parent %q", s.ID, pid))
			}
			w.scopes[pid] = parent
		}
		if err := w.visit(parent, depth+1); err != nil {
			return err
		}
	}
	w.state[s.ID] = visited
	return nil
}

// CheckParents validates a proposed parent set for child before it is
// committed. Every parent must exist, and child must not be reachable from any
// of them.
func CheckParents(ctx context.Context, reader ScopeReader, child *Scope, parents []string) error {
	if child.Tier == TierGeneral && len(parents) > 0 {
		return errors.NewInvalidParameterError("parents", "GENERAL scopes cannot have parents")
	}
	for _, pid := range parents {
		if pid == child.ID {
			return errors.NewCycleRejectedError(child.ID, pid)
		}
		parent, err := reader.GetScope(ctx, pid)
		if err != nil {
			return err
		}
		if parent == nil {
			return errors.NewScopeNotFoundError(pid)
		}
		reachable, err := reaches(ctx, reader, parent, child.ID)
		if err != nil {
			return err
		}
		if reachable {
			return errors.NewCycleRejectedError(child.ID, pid)
		}
	}
	return nil
}

// reaches reports whether target is an ancestor of (or equal to) from.
func reaches(ctx context.Context, reader ScopeReader, from *Scope, target string) (bool, error) {
	seen := map[string]bool{from.ID: true}
	queue := []*Scope{from}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s.ID == target {
			return true, nil
		}
		for _, pid := range s.Parents {
			if pid == target {
				return true, nil
			}
			if seen[pid] {
				continue
			}
			seen[pid] = true
			p, err := reader.GetScope(ctx, pid)
			if err != nil {
				return false, err
			}
			if p != nil {
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}
