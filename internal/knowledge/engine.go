package knowledge

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kaizen/internal/errors"
	"kaizen/internal/metrics"
)

var tracer = otel.Tracer("kaizen.knowledge")

// EntrySearcher runs the lexical candidate search of the entry store.
type EntrySearcher interface {
	// SearchEntries returns every entry owned by one of scopeIDs whose context
	// or content contains any of terms. It may leave out suppressed entries
	// but must not cap the result, since ranking and precedence come later.
	SearchEntries(ctx context.Context, scopeIDs []string, terms []string) ([]*Entry, error)
}

// View is a consistent read snapshot of scopes, entries and conflicts.
type View interface {
	ScopeReader
	EntrySearcher
	SuppressionReader
}

// Store opens snapshots. fn must not retain the View after it returns.
type Store interface {
	View(ctx context.Context, fn func(View) error) error
}

// Config configures the retrieval engine.
type Config struct {
	Ranker        RankerConfig
	MaxChainDepth int
	MaxResults    int
	SizeMode      SizeMode
	// BatchConcurrency bounds parallel resolutions in ResolveBatch.
	BatchConcurrency int
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Ranker:           DefaultRankerConfig(),
		MaxChainDepth:    DefaultMaxChainDepth,
		MaxResults:       50,
		SizeMode:         SizeModeCeiling,
		BatchConcurrency: 4,
	}
}

// Engine is the retrieval orchestrator.
type Engine struct {
	store    Store
	resolver *Resolver
	ranker   *Ranker
	cfg      Config
	logger   *slog.Logger
}

// NewEngine creates an engine over store.
func NewEngine(store Store, cfg Config, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.SizeMode == "" {
		cfg.SizeMode = def.SizeMode
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}
	return &Engine{
		store:    store,
		resolver: NewResolver(cfg.MaxChainDepth),
		ranker:   NewRanker(cfg.Ranker),
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolver returns the engine's chain resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// ResolveRequest asks for the knowledge applicable to a scope.
type ResolveRequest struct {
	Queries  []string `json:"queries"`
	Scope    string   `json:"scope"`
	TaskSize string   `json:"taskSize,omitempty"`
}

// ResolveResult is the ordered outcome of a resolution.
type ResolveResult struct {
	Scope        string          `json:"scope"`
	Chain        []string        `json:"chain"`
	TaskSize     TaskSize        `json:"taskSize,omitempty"`
	Entries      []ResolvedEntry `json:"entries"`
	TotalMatches int             `json:"totalMatches"`
	Truncated    bool            `json:"truncated,omitempty"`
}

// ResolveChain returns the precedence-ordered chain of scopeID.
func (e *Engine) ResolveChain(ctx context.Context, scopeID string) ([]*Scope, error) {
	var chain *Chain
	err := e.store.View(ctx, func(v View) error {
		var err error
		chain, err = e.resolver.ResolveChain(ctx, v, scopeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chain.Scopes, nil
}

// Resolve returns the relevance-ranked, unsuppressed, size-admitted entries
// visible from req.Scope. Ties in rank go to the more specific scope, then to
// the lower entry id.
func (e *Engine) Resolve(ctx context.Context, req ResolveRequest) (result *ResolveResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "knowledge.Resolve")
	span.SetAttributes(
		attribute.String("scope", req.Scope),
		attribute.Int("queries", len(req.Queries)),
		attribute.String("task_size", req.TaskSize),
	)
	defer func() {
		n := 0
		if result != nil {
			n = len(result.Entries)
		}
		finishSpan(span, n, err)
		metrics.ObserveResolve(metrics.ModeRanked, time.Since(start), n, err)
	}()

	size, err := ParseTaskSize(req.TaskSize)
	if err != nil {
		return nil, err
	}
	filter := SizeFilter{Size: size, Mode: e.cfg.SizeMode}
	groups := QueryGroups(req.Queries)

	err = e.store.View(ctx, func(v View) error {
		chain, err := e.resolver.ResolveChain(ctx, v, req.Scope)
		if err != nil {
			return err
		}
		result = &ResolveResult{
			Scope:    chain.Target().ID,
			Chain:    chain.IDs(),
			TaskSize: size,
			Entries:  []ResolvedEntry{},
		}
		if len(groups) == 0 {
			return nil
		}

		scored, err := e.candidates(ctx, v, chain, groups)
		if err != nil {
			return err
		}
		scored, err = NewLedger(v).Filter(ctx, scored)
		if err != nil {
			return err
		}

		entries := make([]ResolvedEntry, 0, len(scored))
		for _, s := range scored {
			if !filter.Admits(s.Entry.TaskSize) {
				continue
			}
			entries = append(entries, newResolvedEntry(s, chain))
		}
		sortResolved(entries)

		result.TotalMatches = len(entries)
		if e.cfg.MaxResults > 0 && len(entries) > e.cfg.MaxResults {
			entries = entries[:e.cfg.MaxResults]
			result.Truncated = true
		}
		result.Entries = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Resolved knowledge",
		"scope", req.Scope,
		"chain", len(result.Chain),
		"matches", result.TotalMatches,
		"duration", time.Since(start),
	)
	return result, nil
}

// candidates searches the chain's scopes and ranks the hits against groups.
func (e *Engine) candidates(ctx context.Context, v View, chain *Chain, groups [][]string) ([]Scored, error) {
	found, err := v.SearchEntries(ctx, chain.IDs(), UnionTerms(groups))
	if err != nil {
		return nil, err
	}
	return e.ranker.Rank(groups, found), nil
}

func newResolvedEntry(s Scored, chain *Chain) ResolvedEntry {
	return ResolvedEntry{
		EntryID:       s.Entry.ID,
		ScopeID:       s.Entry.ScopeID,
		Content:       s.Entry.Content,
		Context:       s.Entry.Context,
		TaskSize:      s.Entry.TaskSize,
		Metaknowledge: s.Entry.Metaknowledge,
		Rank:          s.Rank,
		Precedence:    chain.Precedence(s.Entry.ScopeID),
	}
}

func sortResolved(entries []ResolvedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		if a.Precedence != b.Precedence {
			return a.Precedence < b.Precedence
		}
		return a.EntryID < b.EntryID
	})
}

// ScopeGroup is a set of resolved entries owned by one scope.
type ScopeGroup struct {
	Scope   string          `json:"scope"`
	Entries []ResolvedEntry `json:"entries"`
}

// GroupedByScope regroups a result by owning scope in chain order. Scopes
// without entries are omitted and each group keeps the result's order.
func GroupedByScope(result *ResolveResult) []ScopeGroup {
	byScope := map[string][]ResolvedEntry{}
	for _, e := range result.Entries {
		byScope[e.ScopeID] = append(byScope[e.ScopeID], e)
	}
	groups := make([]ScopeGroup, 0, len(byScope))
	for _, id := range result.Chain {
		if entries, ok := byScope[id]; ok {
			groups = append(groups, ScopeGroup{Scope: id, Entries: entries})
		}
	}
	return groups
}

// BatchItem is one outcome of ResolveBatch.
type BatchItem struct {
	Result *ResolveResult      `json:"result,omitempty"`
	Error  *errors.KaizenError `json:"error,omitempty"`
}

// ResolveBatch runs independent resolutions in parallel. A failing request
// records its error in its own item; only context cancellation fails the batch.
func (e *Engine) ResolveBatch(ctx context.Context, reqs []ResolveRequest) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := e.Resolve(gctx, req)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				items[i].Error = asKaizenError(err)
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func asKaizenError(err error) *errors.KaizenError {
	var ke *errors.KaizenError
	if stderrors.As(err, &ke) {
		return ke
	}
	return errors.NewOperationError("resolve", err)
}

func finishSpan(span trace.Span, results int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("results", results))
	}
	span.End()
}
