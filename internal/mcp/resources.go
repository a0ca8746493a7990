package mcp

import (
	"context"
	"strings"

	"kaizen/internal/errors"
)

const uriScheme = "kaizen://"

// Resource represents a static resource
type Resource struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
}

// ResourceTemplate represents a dynamic resource with URI template
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
}

// GetResourceDefinitions returns static resources and resource templates
func (s *MCPServer) GetResourceDefinitions() ([]Resource, []ResourceTemplate) {
	resources := []Resource{
		{URI: uriScheme + "namespaces", Name: "Namespaces", MimeType: "application/json"},
		{URI: uriScheme + "status", Name: "Store status", MimeType: "application/json"},
	}
	templates := []ResourceTemplate{
		{URITemplate: uriScheme + "namespace/{name}", Name: "Namespace with scopes", MimeType: "application/json"},
		{URITemplate: uriScheme + "scope/{id}/chain", Name: "Scope inheritance chain", MimeType: "application/json"},
		{URITemplate: uriScheme + "scope/{id}/entries", Name: "Scope knowledge entries", MimeType: "application/json"},
	}
	return resources, templates
}

// handleResourceRead handles reading a resource by URI
func (s *MCPServer) handleResourceRead(uri string) (interface{}, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, errors.NewInvalidParameterError("uri", "expected kaizen:// scheme")
	}
	parts := strings.Split(strings.TrimPrefix(uri, uriScheme), "/")

	ctx := context.Background()
	switch {
	case len(parts) == 1 && parts[0] == "namespaces":
		return s.deps.Repos.Namespaces.List(ctx, false)
	case len(parts) == 1 && parts[0] == "status":
		if s.deps.DB == nil {
			return nil, errors.NewInvalidParameterError("uri", "status is unavailable")
		}
		return s.deps.DB.Stats(ctx)
	case len(parts) == 2 && parts[0] == "namespace":
		return s.deps.Repos.Namespaces.Get(ctx, parts[1], true)
	case len(parts) == 3 && parts[0] == "scope" && parts[2] == "chain":
		return s.deps.Engine.ResolveChain(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "scope" && parts[2] == "entries":
		return s.deps.Repos.Entries.List(ctx, parts[1])
	default:
		return nil, errors.NewInvalidParameterError("uri", "unknown resource "+uri)
	}
}
