package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"kaizen/internal/envelope"
	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
)

// toolGetTaskContext resolves knowledge for a task, grouped by owning scope
func (s *MCPServer) toolGetTaskContext(params map[string]interface{}) (*envelope.Response, error) {
	queries, present, err := stringList(params, "queries")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, errors.NewInvalidParameterError("queries", "required array of strings")
	}
	scope, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	taskSize, err := taskSizeParam(params)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Executing get_task_context",
		"scope", scope,
		"queries", len(queries),
		"taskSize", taskSize,
	)

	start := time.Now()
	res, err := s.deps.Engine.Resolve(context.Background(), knowledge.ResolveRequest{
		Queries:  queries,
		Scope:    scope,
		TaskSize: taskSize,
	})
	if err != nil {
		return nil, err
	}

	resp := envelope.ForResolve(res, time.Since(start))
	resp.Data = map[string]interface{}{
		"scope":        res.Scope,
		"chain":        res.Chain,
		"groups":       knowledge.GroupedByScope(res),
		"totalMatches": res.TotalMatches,
	}
	return resp, nil
}

// toolLookupKnowledge returns one entry per exact keyword
func (s *MCPServer) toolLookupKnowledge(params map[string]interface{}) (*envelope.Response, error) {
	keywords, err := requireStringList(params, "keywords")
	if err != nil {
		return nil, err
	}
	scope, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	taskSize, err := taskSizeParam(params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.deps.Engine.Lookup(context.Background(), knowledge.LookupRequest{
		Keywords: keywords,
		Scope:    scope,
		TaskSize: taskSize,
	})
	if err != nil {
		return nil, err
	}
	return envelope.ForLookup(res, time.Since(start)), nil
}

func (s *MCPServer) toolResolveChain(params map[string]interface{}) (*envelope.Response, error) {
	scope, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	chain, err := s.deps.Engine.ResolveChain(context.Background(), scope)
	if err != nil {
		return nil, err
	}
	return envelope.ForChain(chain), nil
}

// namespaceView is the get_namespaces presentation of one namespace
type namespaceView struct {
	Description string               `json:"description"`
	Scopes      map[string]scopeView `json:"scopes,omitempty"`
}

type scopeView struct {
	Description string   `json:"description"`
	Tier        string   `json:"tier,omitempty"`
	Parents     []string `json:"parents,omitempty"`
}

// toolGetNamespaces lists namespaces in one of three styles: short carries
// descriptions only, long adds scopes, details adds tiers and parents
func (s *MCPServer) toolGetNamespaces(params map[string]interface{}) (*envelope.Response, error) {
	style := "short"
	if v, ok := params["style"].(string); ok && v != "" {
		style = v
	}
	if style != "short" && style != "long" && style != "details" {
		return nil, errors.NewInvalidParameterError("style", "expected short, long or details")
	}
	withScopes := style != "short"

	ctx := context.Background()
	var list []*knowledge.Namespace
	if name, _ := params["namespace"].(string); name != "" {
		ns, err := s.deps.Repos.Namespaces.Get(ctx, name, withScopes)
		if err != nil {
			return nil, err
		}
		list = []*knowledge.Namespace{ns}
	} else {
		var err error
		list, err = s.deps.Repos.Namespaces.List(ctx, withScopes)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]namespaceView, len(list))
	for _, ns := range list {
		view := namespaceView{Description: ns.Description}
		if withScopes {
			view.Scopes = make(map[string]scopeView, len(ns.Scopes))
			for _, sc := range ns.Scopes {
				sv := scopeView{Description: sc.Description}
				if style == "details" {
					sv.Tier = sc.Tier.String()
					sv.Parents = sc.Parents
				}
				view.Scopes[sc.Name] = sv
			}
		}
		out[ns.Name] = view
	}
	return envelope.Operational(map[string]interface{}{"namespaces": out}), nil
}

func (s *MCPServer) toolCreateNamespace(params map[string]interface{}) (*envelope.Response, error) {
	name, err := requireString(params, "namespace")
	if err != nil {
		return nil, err
	}
	description, err := requireString(params, "description")
	if err != nil {
		return nil, err
	}

	ns, err := s.deps.Repos.Namespaces.Create(context.Background(), &knowledge.NamespaceInput{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	return envelope.New().
		Data(ns).
		Suggest("create_scope", map[string]interface{}{"scope": knowledge.ScopeID(ns.Name, "<name>")},
			"Add scopes under the new namespace").
		Build(), nil
}

func (s *MCPServer) toolUpdateNamespace(params map[string]interface{}) (*envelope.Response, error) {
	name, err := requireString(params, "namespace")
	if err != nil {
		return nil, err
	}
	newName, err := optionalString(params, "new_namespace")
	if err != nil {
		return nil, err
	}
	newDescription, err := optionalString(params, "new_description")
	if err != nil {
		return nil, err
	}
	if newName == nil && newDescription == nil {
		return nil, errors.NewInvalidParameterError("new_namespace",
			"at least one of new_namespace or new_description must be provided")
	}

	ns, err := s.deps.Repos.Namespaces.Update(context.Background(), &knowledge.NamespaceUpdate{
		Name:        name,
		NewName:     newName,
		Description: newDescription,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Operational(ns), nil
}

func (s *MCPServer) toolDeleteNamespace(params map[string]interface{}) (*envelope.Response, error) {
	name, err := requireString(params, "namespace")
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Repos.Namespaces.Delete(context.Background(), name)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(res), nil
}

func (s *MCPServer) toolCreateScope(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	description, err := requireString(params, "description")
	if err != nil {
		return nil, err
	}
	parents, _, err := stringList(params, "parents")
	if err != nil {
		return nil, err
	}
	tier, _ := params["tier"].(string)

	scope, err := s.deps.Repos.Scopes.Create(context.Background(), &knowledge.ScopeInput{
		ID:          id,
		Description: description,
		Tier:        tier,
		Parents:     parents,
	})
	if err != nil {
		return nil, err
	}
	return envelope.New().
		Data(scope).
		Suggest("write_knowledge", map[string]interface{}{"scope": scope.ID}, "Record knowledge in the new scope").
		Build(), nil
}

// toolUpdateScope accepts new_scope either as a bare name or as a full id in
// the same namespace
func (s *MCPServer) toolUpdateScope(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	in := &knowledge.ScopeUpdate{ID: id}

	newScope, err := optionalString(params, "new_scope")
	if err != nil {
		return nil, err
	}
	if newScope != nil {
		name, err := renamedScope(id, *newScope)
		if err != nil {
			return nil, err
		}
		in.NewName = &name
	}
	if in.Description, err = optionalString(params, "new_description"); err != nil {
		return nil, err
	}
	if in.Tier, err = optionalString(params, "new_tier"); err != nil {
		return nil, err
	}
	parents, present, err := stringList(params, "new_parents")
	if err != nil {
		return nil, err
	}
	if present {
		in.Parents = &parents
	}
	if in.NewName == nil && in.Description == nil && in.Tier == nil && in.Parents == nil {
		return nil, errors.NewInvalidParameterError("new_scope",
			"at least one of new_scope, new_description, new_parents or new_tier must be provided")
	}

	scope, err := s.deps.Repos.Scopes.Update(context.Background(), in)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(scope), nil
}

// renamedScope returns the new scope name, rejecting a move across namespaces
func renamedScope(id, newScope string) (string, error) {
	ns, _, err := knowledge.SplitScopeID(id)
	if err != nil {
		return "", err
	}
	if !strings.Contains(newScope, ":") {
		return newScope, nil
	}
	newNS, name, err := knowledge.SplitScopeID(newScope)
	if err != nil {
		return "", err
	}
	if newNS != ns {
		return "", errors.NewInvalidParameterError("new_scope", "a scope cannot move to another namespace")
	}
	return name, nil
}

func (s *MCPServer) toolDeleteScope(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireString(params, "scope")
	if err != nil {
		return nil, err
	}
	deleted, err := s.deps.Repos.Scopes.Delete(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(map[string]interface{}{
		"scope":          id,
		"deletedEntries": deleted,
	}), nil
}

func (s *MCPServer) toolWriteKnowledge(params map[string]interface{}) (*envelope.Response, error) {
	in := &knowledge.EntryInput{}
	var err error
	if in.ScopeID, err = requireString(params, "scope"); err != nil {
		return nil, err
	}
	if in.Content, err = requireString(params, "content"); err != nil {
		return nil, err
	}
	if in.Context, err = requireString(params, "context"); err != nil {
		return nil, err
	}
	if in.TaskSize, err = taskSizeParam(params); err != nil {
		return nil, err
	}
	meta, err := metaknowledgeParam(params)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		in.Metaknowledge = *meta
	}

	findings, err := s.deps.Guard.Check(secrets.EntryFields(&in.Content, &in.Context, in.Metaknowledge)...)
	if err != nil {
		return nil, err
	}
	entry, err := s.deps.Repos.Entries.Create(context.Background(), in)
	if err != nil {
		return nil, err
	}
	return envelope.ForEntryWrite(map[string]interface{}{
		"id":    entry.ID,
		"entry": entry,
	}, findings), nil
}

func (s *MCPServer) toolUpdateKnowledge(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireString(params, "knowledge_id")
	if err != nil {
		return nil, err
	}
	in := &knowledge.EntryUpdate{ID: id}
	if in.Content, err = optionalString(params, "content"); err != nil {
		return nil, err
	}
	if in.Context, err = optionalString(params, "context"); err != nil {
		return nil, err
	}
	if in.ScopeID, err = optionalString(params, "scope"); err != nil {
		return nil, err
	}
	if in.TaskSize, err = optionalTaskSize(params); err != nil {
		return nil, err
	}
	in.ClearTaskSize, _ = params["clear_task_size"].(bool)
	if in.Metaknowledge, err = metaknowledgeParam(params); err != nil {
		return nil, err
	}

	var meta knowledge.Metaknowledge
	if in.Metaknowledge != nil {
		meta = *in.Metaknowledge
	}
	findings, err := s.deps.Guard.Check(secrets.EntryFields(in.Content, in.Context, meta)...)
	if err != nil {
		return nil, err
	}
	entry, err := s.deps.Repos.Entries.Update(context.Background(), in)
	if err != nil {
		return nil, err
	}
	return envelope.ForEntryWrite(entry, findings), nil
}

func (s *MCPServer) toolDeleteKnowledge(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireString(params, "knowledge_id")
	if err != nil {
		return nil, err
	}
	if err := s.deps.Repos.Entries.Delete(context.Background(), id); err != nil {
		return nil, err
	}
	return envelope.Operational(map[string]interface{}{"deleted": id}), nil
}

func (s *MCPServer) toolResolveKnowledgeConflict(params map[string]interface{}) (*envelope.Response, error) {
	activeID, err := requireString(params, "active_id")
	if err != nil {
		return nil, err
	}
	suppressed, err := requireStringList(params, "suppressed_ids")
	if err != nil {
		return nil, err
	}

	record, err := s.deps.Repos.Conflicts.Create(context.Background(), activeID, suppressed)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(record), nil
}

// metaknowledgeParam decodes the optional ordered annotation list
func metaknowledgeParam(params map[string]interface{}) (*knowledge.Metaknowledge, error) {
	raw, present := params["metaknowledge"]
	if !present || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.NewInvalidParameterError("metaknowledge", err.Error())
	}
	var meta knowledge.Metaknowledge
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.NewInvalidParameterError("metaknowledge", "expected an array of {label, text} objects")
	}
	return &meta, nil
}
