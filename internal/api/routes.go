package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kaizen/internal/auth"
	"kaizen/internal/metrics"
)

// route is one guarded endpoint. summary feeds the OpenAPI document.
type route struct {
	pattern string
	perm    auth.Permission
	summary string
	handler func(*Server) http.HandlerFunc
}

// routes lists every guarded endpoint in registration order
var routes = []route{
	// Retrieval
	{"POST /resolve", auth.PermRead, "Resolve ranked knowledge for a scope", func(s *Server) http.HandlerFunc { return s.handleResolve }},
	{"POST /resolve/batch", auth.PermRead, "Resolve several requests at once", func(s *Server) http.HandlerFunc { return s.handleResolveBatch }},
	{"POST /lookup", auth.PermRead, "Exact keyword lookup", func(s *Server) http.HandlerFunc { return s.handleLookup }},
	{"GET /scopes/{id}/chain", auth.PermRead, "Inheritance chain of a scope", func(s *Server) http.HandlerFunc { return s.handleChain }},

	// Namespaces
	{"GET /namespaces", auth.PermRead, "List namespaces", func(s *Server) http.HandlerFunc { return s.handleListNamespaces }},
	{"GET /namespaces/{name}", auth.PermRead, "Get a namespace", func(s *Server) http.HandlerFunc { return s.handleGetNamespace }},
	{"POST /namespaces", auth.PermWrite, "Create a namespace", func(s *Server) http.HandlerFunc { return s.handleCreateNamespace }},
	{"PATCH /namespaces/{name}", auth.PermWrite, "Rename or describe a namespace", func(s *Server) http.HandlerFunc { return s.handleUpdateNamespace }},
	{"DELETE /namespaces/{name}", auth.PermWrite, "Delete a namespace", func(s *Server) http.HandlerFunc { return s.handleDeleteNamespace }},

	// Scopes
	{"GET /scopes", auth.PermRead, "List scopes", func(s *Server) http.HandlerFunc { return s.handleListScopes }},
	{"GET /scopes/{id}", auth.PermRead, "Get a scope", func(s *Server) http.HandlerFunc { return s.handleGetScope }},
	{"POST /scopes", auth.PermWrite, "Create a scope", func(s *Server) http.HandlerFunc { return s.handleCreateScope }},
	{"PATCH /scopes/{id}", auth.PermWrite, "Update a scope", func(s *Server) http.HandlerFunc { return s.handleUpdateScope }},
	{"DELETE /scopes/{id}", auth.PermWrite, "Delete a scope", func(s *Server) http.HandlerFunc { return s.handleDeleteScope }},

	// Knowledge entries
	{"GET /knowledge", auth.PermRead, "List entries of a scope", func(s *Server) http.HandlerFunc { return s.handleListEntries }},
	{"GET /knowledge/{id}", auth.PermRead, "Get an entry", func(s *Server) http.HandlerFunc { return s.handleGetEntry }},
	{"POST /knowledge", auth.PermWrite, "Write an entry", func(s *Server) http.HandlerFunc { return s.handleCreateEntry }},
	{"PATCH /knowledge/{id}", auth.PermWrite, "Update an entry", func(s *Server) http.HandlerFunc { return s.handleUpdateEntry }},
	{"DELETE /knowledge/{id}", auth.PermWrite, "Delete an entry", func(s *Server) http.HandlerFunc { return s.handleDeleteEntry }},

	// Conflicts
	{"GET /conflicts", auth.PermRead, "List conflict records", func(s *Server) http.HandlerFunc { return s.handleListConflicts }},
	{"GET /conflicts/{id}", auth.PermRead, "Get a conflict record", func(s *Server) http.HandlerFunc { return s.handleGetConflict }},
	{"POST /conflicts", auth.PermWrite, "Record that one entry supersedes others", func(s *Server) http.HandlerFunc { return s.handleCreateConflict }},
	{"DELETE /conflicts/{id}", auth.PermWrite, "Delete a conflict record", func(s *Server) http.HandlerFunc { return s.handleDeleteConflict }},
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and diagnostics
	s.router.HandleFunc("GET /health", observe("GET /health", s.handleHealth))
	s.router.HandleFunc("GET /version", observe("GET /version", s.handleVersion))
	s.router.HandleFunc("GET /openapi.json", observe("GET /openapi.json", s.handleOpenAPISpec))
	s.router.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	for _, rt := range routes {
		s.router.HandleFunc(rt.pattern, observe(rt.pattern, s.guard(rt.perm, rt.handler(s))))
	}

	s.router.HandleFunc("GET /{$}", s.handleRoot)
}

// handleRoot lists the available endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := []string{"GET /health", "GET /version", "GET /openapi.json", "GET /metrics"}
	for _, rt := range routes {
		endpoints = append(endpoints, rt.pattern)
	}
	WriteJSON(w, map[string]interface{}{
		"name":      "kaizen",
		"endpoints": endpoints,
	}, http.StatusOK)
}
