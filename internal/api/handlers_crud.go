package api

import (
	"net/http"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
)

// respond writes data as an envelope, or the error
func respond(w http.ResponseWriter, data interface{}, err error, status int) {
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, envelope.Operational(data), status)
}

// GET /namespaces?scopes=true
func (s *Server) handleListNamespaces(w http.ResponseWriter, r *http.Request) {
	withScopes, err := boolParam(r, "scopes")
	if err != nil {
		WriteError(w, err)
		return
	}
	list, err := s.deps.Repos.Namespaces.List(r.Context(), withScopes)
	respond(w, list, err, http.StatusOK)
}

// GET /namespaces/{name}
func (s *Server) handleGetNamespace(w http.ResponseWriter, r *http.Request) {
	ns, err := s.deps.Repos.Namespaces.Get(r.Context(), r.PathValue("name"), true)
	respond(w, ns, err, http.StatusOK)
}

// POST /namespaces
func (s *Server) handleCreateNamespace(w http.ResponseWriter, r *http.Request) {
	var in knowledge.NamespaceInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	ns, err := s.deps.Repos.Namespaces.Create(r.Context(), &in)
	respond(w, ns, err, http.StatusCreated)
}

// PATCH /namespaces/{name}
func (s *Server) handleUpdateNamespace(w http.ResponseWriter, r *http.Request) {
	var in knowledge.NamespaceUpdate
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	in.Name = r.PathValue("name")
	ns, err := s.deps.Repos.Namespaces.Update(r.Context(), &in)
	respond(w, ns, err, http.StatusOK)
}

// DELETE /namespaces/{name}
func (s *Server) handleDeleteNamespace(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Repos.Namespaces.Delete(r.Context(), r.PathValue("name"))
	respond(w, res, err, http.StatusOK)
}

// GET /scopes?namespace=acme
func (s *Server) handleListScopes(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Repos.Scopes.List(r.Context(), r.URL.Query().Get("namespace"))
	respond(w, list, err, http.StatusOK)
}

// GET /scopes/{id}
func (s *Server) handleGetScope(w http.ResponseWriter, r *http.Request) {
	scope, err := s.deps.Repos.Scopes.Get(r.Context(), r.PathValue("id"))
	respond(w, scope, err, http.StatusOK)
}

// POST /scopes
func (s *Server) handleCreateScope(w http.ResponseWriter, r *http.Request) {
	var in knowledge.ScopeInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	scope, err := s.deps.Repos.Scopes.Create(r.Context(), &in)
	respond(w, scope, err, http.StatusCreated)
}

// PATCH /scopes/{id}
func (s *Server) handleUpdateScope(w http.ResponseWriter, r *http.Request) {
	var in knowledge.ScopeUpdate
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	in.ID = r.PathValue("id")
	scope, err := s.deps.Repos.Scopes.Update(r.Context(), &in)
	respond(w, scope, err, http.StatusOK)
}

// DELETE /scopes/{id}
func (s *Server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := s.deps.Repos.Scopes.Delete(r.Context(), id)
	respond(w, map[string]interface{}{"scope": id, "deletedEntries": n}, err, http.StatusOK)
}

// GET /knowledge?scope=acme:web
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		BadRequest(w, "scope", "query parameter is required")
		return
	}
	list, err := s.deps.Repos.Entries.List(r.Context(), scope)
	respond(w, list, err, http.StatusOK)
}

// GET /knowledge/{id}
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Repos.Entries.Get(r.Context(), r.PathValue("id"))
	respond(w, entry, err, http.StatusOK)
}

// POST /knowledge
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in knowledge.EntryInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	findings, err := s.deps.Guard.Check(secrets.EntryFields(&in.Content, &in.Context, in.Metaknowledge)...)
	if err != nil {
		WriteError(w, err)
		return
	}
	entry, err := s.deps.Repos.Entries.Create(r.Context(), &in)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, envelope.ForEntryWrite(entry, findings), http.StatusCreated)
}

// PATCH /knowledge/{id}
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var in knowledge.EntryUpdate
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	in.ID = r.PathValue("id")
	var meta knowledge.Metaknowledge
	if in.Metaknowledge != nil {
		meta = *in.Metaknowledge
	}
	findings, err := s.deps.Guard.Check(secrets.EntryFields(in.Content, in.Context, meta)...)
	if err != nil {
		WriteError(w, err)
		return
	}
	entry, err := s.deps.Repos.Entries.Update(r.Context(), &in)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, envelope.ForEntryWrite(entry, findings), http.StatusOK)
}

// DELETE /knowledge/{id}
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Repos.Entries.Delete(r.Context(), id)
	respond(w, map[string]string{"deleted": id}, err, http.StatusOK)
}

// GET /conflicts
func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Repos.Conflicts.List(r.Context())
	respond(w, list, err, http.StatusOK)
}

// GET /conflicts/{id}
func (s *Server) handleGetConflict(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Repos.Conflicts.Get(r.Context(), r.PathValue("id"))
	respond(w, rec, err, http.StatusOK)
}

// POST /conflicts
func (s *Server) handleCreateConflict(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActiveID      string   `json:"activeId"`
		SuppressedIDs []string `json:"suppressedIds"`
	}
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	rec, err := s.deps.Repos.Conflicts.Create(r.Context(), in.ActiveID, in.SuppressedIDs)
	respond(w, rec, err, http.StatusCreated)
}

// DELETE /conflicts/{id}
func (s *Server) handleDeleteConflict(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Repos.Conflicts.Delete(r.Context(), id)
	respond(w, map[string]string{"deleted": id}, err, http.StatusOK)
}
