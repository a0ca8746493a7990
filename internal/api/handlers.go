package api

import (
	"net/http"
	"time"

	"kaizen/internal/envelope"
	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

// maxBatch bounds POST /resolve/batch
const maxBatch = 64

// resolveBody is POST /resolve. Grouped regroups entries by owning scope.
type resolveBody struct {
	knowledge.ResolveRequest
	Grouped bool `json:"grouped,omitempty"`
}

// handleResolve handles POST /resolve
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	start := time.Now()
	res, err := s.deps.Engine.Resolve(r.Context(), body.ResolveRequest)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := envelope.ForResolve(res, time.Since(start))
	if body.Grouped {
		resp.Data = map[string]interface{}{
			"scope":  res.Scope,
			"chain":  res.Chain,
			"groups": knowledge.GroupedByScope(res),
		}
	}
	WriteJSON(w, resp, http.StatusOK)
}

// handleResolveBatch handles POST /resolve/batch
func (s *Server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []knowledge.ResolveRequest `json:"requests"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if len(body.Requests) == 0 || len(body.Requests) > maxBatch {
		BadRequest(w, "requests", "between 1 and 64 requests are accepted")
		return
	}

	start := time.Now()
	items, err := s.deps.Engine.ResolveBatch(r.Context(), body.Requests)
	if err != nil {
		WriteError(w, errors.NewOperationError("resolve batch", err))
		return
	}
	WriteJSON(w, envelope.New().Data(items).WithDuration(time.Since(start)).Build(), http.StatusOK)
}

// handleLookup handles POST /lookup
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req knowledge.LookupRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	start := time.Now()
	res, err := s.deps.Engine.Lookup(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, envelope.ForLookup(res, time.Since(start)), http.StatusOK)
}

// handleChain handles GET /scopes/{id}/chain
func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	chain, err := s.deps.Engine.ResolveChain(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, envelope.ForChain(chain), http.StatusOK)
}
