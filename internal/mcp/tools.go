package mcp

import "kaizen/internal/envelope"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler is a function that handles a tool call and returns an envelope response.
type ToolHandler func(params map[string]interface{}) (*envelope.Response, error)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func listProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

func taskSizeProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"XS", "S", "M", "L", "XL"},
		"description": "Task size filter. Entries larger than this are skipped; entries without a size always apply",
	}
}

func tierProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"GENERAL", "PRODUCT", "GROUP", "PROJECT"},
		"description": "Scope tier (default PROJECT)",
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// GetToolDefinitions returns all tool definitions
func (s *MCPServer) GetToolDefinitions() []Tool {
	return []Tool{
		// Retrieval
		{
			Name: "get_task_context",
			Description: "Get the knowledge that applies to a task. Searches the scope and every ancestor scope, " +
				"ranks entries by relevance to the queries and returns them grouped by scope, most specific first.",
			InputSchema: objectSchema(map[string]interface{}{
				"queries":   listProp("Short search phrases describing the task. Ex: ['add endpoint', 'error handling']"),
				"scope":     stringProp("Scope to resolve from. Ex: 'acme:web'"),
				"task_size": taskSizeProp(),
			}, "queries", "scope"),
		},
		{
			Name: "lookup_knowledge",
			Description: "Look up exactly one entry per keyword. The entry from the most specific scope in the " +
				"chain wins. Keywords with no match are reported as warnings.",
			InputSchema: objectSchema(map[string]interface{}{
				"keywords":  listProp("Exact keywords. Ex: ['release process']"),
				"scope":     stringProp("Scope to resolve from"),
				"task_size": taskSizeProp(),
			}, "keywords", "scope"),
		},
		{
			Name:        "resolve_chain",
			Description: "Show the inheritance chain of a scope in precedence order, the scope itself first.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope": stringProp("Scope id. Ex: 'acme:web'"),
			}, "scope"),
		},

		// Namespaces
		{
			Name:        "get_namespaces",
			Description: "List namespaces. Style 'short' returns descriptions, 'long' adds scopes, 'details' adds scope parents.",
			InputSchema: objectSchema(map[string]interface{}{
				"namespace": stringProp("Only this namespace"),
				"style": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"short", "long", "details"},
					"default":     "short",
					"description": "Output detail",
				},
			}),
		},
		{
			Name:        "create_namespace",
			Description: "Create a namespace together with its default scope.",
			InputSchema: objectSchema(map[string]interface{}{
				"namespace":   stringProp("Name: lowercase letters, digits, '-' and '_'. Ex: 'acme'"),
				"description": stringProp("What the namespace holds"),
			}, "namespace", "description"),
		},
		{
			Name:        "update_namespace",
			Description: "Rename a namespace or change its description. Renaming rewrites every scope id under it.",
			InputSchema: objectSchema(map[string]interface{}{
				"namespace":       stringProp("Current name"),
				"new_namespace":   stringProp("New name"),
				"new_description": stringProp("New description"),
			}, "namespace"),
		},
		{
			Name:        "delete_namespace",
			Description: "Delete a namespace with all its scopes and knowledge.",
			InputSchema: objectSchema(map[string]interface{}{
				"namespace": stringProp("Name"),
			}, "namespace"),
		},

		// Scopes
		{
			Name:        "create_scope",
			Description: "Create a scope. The namespace default scope is always added as a parent.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope":       stringProp("Scope id 'namespace:name'. Ex: 'acme:web'"),
				"description": stringProp("What the scope covers"),
				"parents":     listProp("Parent scope ids. Ex: ['acme:default', 'java:default']"),
				"tier":        tierProp(),
			}, "scope", "description"),
		},
		{
			Name:        "update_scope",
			Description: "Rename a scope, change its description or tier, or replace its parents.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope":           stringProp("Scope id"),
				"new_scope":       stringProp("New scope id in the same namespace"),
				"new_description": stringProp("New description"),
				"new_parents":     listProp("Replacement parent set"),
				"new_tier":        tierProp(),
			}, "scope"),
		},
		{
			Name:        "delete_scope",
			Description: "Delete a scope and its knowledge. Fails while other scopes inherit from it.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope": stringProp("Scope id"),
			}, "scope"),
		},

		// Knowledge
		{
			Name:        "write_knowledge",
			Description: "Record a knowledge entry in a scope. Returns the new entry id.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope":     stringProp("Owning scope id"),
				"content":   stringProp("The knowledge itself"),
				"context":   stringProp("Keywords describing when it applies"),
				"task_size": taskSizeProp(),
				"metaknowledge": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"label": map[string]interface{}{"type": "string"},
							"text":  map[string]interface{}{"type": "string"},
						},
						"required": []string{"label", "text"},
					},
					"description": "Ordered annotations such as source or rationale",
				},
			}, "scope", "content", "context"),
		},
		{
			Name:        "update_knowledge",
			Description: "Change an entry's content, context, scope or task size.",
			InputSchema: objectSchema(map[string]interface{}{
				"knowledge_id":    stringProp("Entry id"),
				"content":         stringProp("New content"),
				"context":         stringProp("New context"),
				"scope":           stringProp("Move the entry to this scope"),
				"task_size":       taskSizeProp(),
				"clear_task_size": map[string]interface{}{"type": "boolean", "description": "Remove the task size"},
			}, "knowledge_id"),
		},
		{
			Name:        "delete_knowledge",
			Description: "Delete an entry. Conflict records that mention it are cleaned up.",
			InputSchema: objectSchema(map[string]interface{}{
				"knowledge_id": stringProp("Entry id"),
			}, "knowledge_id"),
		},
		{
			Name:        "resolve_knowledge_conflict",
			Description: "Declare that one entry supersedes others. Suppressed entries stop appearing in results.",
			InputSchema: objectSchema(map[string]interface{}{
				"active_id":      stringProp("Entry that stays active"),
				"suppressed_ids": listProp("Entries it supersedes"),
			}, "active_id", "suppressed_ids"),
		},
	}
}

// RegisterTools registers all tool handlers
func (s *MCPServer) RegisterTools() {
	s.tools["get_task_context"] = s.toolGetTaskContext
	s.tools["lookup_knowledge"] = s.toolLookupKnowledge
	s.tools["resolve_chain"] = s.toolResolveChain

	s.tools["get_namespaces"] = s.toolGetNamespaces
	s.tools["create_namespace"] = s.toolCreateNamespace
	s.tools["update_namespace"] = s.toolUpdateNamespace
	s.tools["delete_namespace"] = s.toolDeleteNamespace

	s.tools["create_scope"] = s.toolCreateScope
	s.tools["update_scope"] = s.toolUpdateScope
	s.tools["delete_scope"] = s.toolDeleteScope

	s.tools["write_knowledge"] = s.toolWriteKnowledge
	s.tools["update_knowledge"] = s.toolUpdateKnowledge
	s.tools["delete_knowledge"] = s.toolDeleteKnowledge
	s.tools["resolve_knowledge_conflict"] = s.toolResolveKnowledgeConflict
}
