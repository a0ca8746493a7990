package api

import (
	"net/http"
	"regexp"
	"strings"

	"kaizen/internal/auth"
	"kaizen/internal/version"
)

var pathParam = regexp.MustCompile(`\{([a-z]+)\}`)

// handleOpenAPISpec returns the OpenAPI specification
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, GenerateOpenAPISpec(), http.StatusOK)
}

// GenerateOpenAPISpec builds the OpenAPI document from the route table.
// Bodies and payloads are described loosely; every response is an envelope.
func GenerateOpenAPISpec() map[string]interface{} {
	paths := map[string]map[string]interface{}{
		"/health":       {"get": operation("Health check with store statistics", nil, false)},
		"/version":      {"get": operation("Build information", nil, false)},
		"/openapi.json": {"get": operation("This document", nil, false)},
	}

	for _, rt := range routes {
		method, path, _ := strings.Cut(rt.pattern, " ")
		if paths[path] == nil {
			paths[path] = map[string]interface{}{}
		}
		var params []map[string]interface{}
		for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
			params = append(params, map[string]interface{}{
				"name":     m[1],
				"in":       "path",
				"required": true,
				"schema":   map[string]string{"type": "string"},
			})
		}
		op := operation(rt.summary, params, method == http.MethodPost || method == http.MethodPatch)
		if rt.perm == auth.PermWrite {
			op["security"] = []map[string][]string{{"bearerAuth": {}}}
		}
		paths[path][strings.ToLower(method)] = op
	}

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Kaizen HTTP API",
			"version":     version.Version,
			"description": "Scoped knowledge retrieval and curation",
		},
		"paths": paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{"type": "http", "scheme": "bearer"},
			},
			"schemas": map[string]interface{}{
				"Envelope": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"schemaVersion":      map[string]string{"type": "string"},
						"data":               map[string]string{"type": "object"},
						"meta":               map[string]string{"type": "object"},
						"warnings":           map[string]string{"type": "array"},
						"error":              map[string]string{"type": "object"},
						"suggestedNextCalls": map[string]string{"type": "array"},
					},
				},
			},
		},
	}
}

func operation(summary string, params []map[string]interface{}, hasBody bool) map[string]interface{} {
	envelopeRef := map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": map[string]string{"$ref": "#/components/schemas/Envelope"},
		},
	}
	op := map[string]interface{}{
		"summary": summary,
		"responses": map[string]interface{}{
			"200":     map[string]interface{}{"description": "Success", "content": envelopeRef},
			"default": map[string]interface{}{"description": "Error envelope", "content": envelopeRef},
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if hasBody {
		op["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]string{"type": "object"},
				},
			},
		}
	}
	return op
}
