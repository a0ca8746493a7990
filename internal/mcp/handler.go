package mcp

import (
	"encoding/json"
	"fmt"

	"kaizen/internal/envelope"
	"kaizen/internal/errors"
)

// handleMessage processes an incoming MCP message and returns a response
func (s *MCPServer) handleMessage(msg *Message) *Message {
	switch msg.kind() {
	case kindRequest:
		return s.handleRequest(msg)
	case kindNotification:
		s.handleNotification(msg)
		return nil
	case kindResponse:
		s.logger.Debug("Ignoring client response", "id", msg.ID)
		return nil
	default:
		return errorResponse(msg.ID, InvalidRequest, "Invalid message: not a request or notification")
	}
}

// handleRequest handles a JSON-RPC request
func (s *MCPServer) handleRequest(msg *Message) *Message {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.ID,
	)

	switch msg.Method {
	case "initialize":
		return resultResponse(msg.ID, s.handleInitialize(paramsOf(msg)))
	case "ping":
		return resultResponse(msg.ID, map[string]interface{}{})
	case "tools/list":
		return resultResponse(msg.ID, map[string]interface{}{"tools": s.GetToolDefinitions()})
	case "tools/call":
		return s.handleCallToolRequest(msg)
	case "resources/list":
		return s.handleListResourcesRequest(msg)
	case "resources/read":
		return s.handleReadResourceRequest(msg)
	default:
		return errorResponse(msg.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method))
	}
}

// handleNotification handles a JSON-RPC notification
func (s *MCPServer) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	default:
		s.logger.Debug("Unknown notification", "method", msg.Method)
	}
}

func paramsOf(msg *Message) map[string]interface{} {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return make(map[string]interface{})
	}
	return params
}

// handleCallToolRequest handles the tools/call request
func (s *MCPServer) handleCallToolRequest(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return errorResponse(msg.ID, InvalidParams, "Invalid params: expected object")
	}

	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return errorResponse(msg.ID, InvalidParams, "Invalid params: missing tool name")
	}
	handler, exists := s.tools[toolName]
	if !exists {
		return errorResponse(msg.ID, InvalidParams, fmt.Sprintf("Unknown tool: %s", toolName))
	}

	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	s.logger.Info("Calling tool", "tool", toolName)

	result, err := s.handleCallTool(toolName, handler, toolParams)
	if err != nil {
		return errorResponse(msg.ID, InternalError, err.Error())
	}
	return resultResponse(msg.ID, result)
}

// handleCallTool runs a tool and wraps its envelope as MCP text content.
// Tool failures travel inside the envelope with isError set, so the client
// sees the error code and suggested fixes.
func (s *MCPServer) handleCallTool(name string, handler ToolHandler, params map[string]interface{}) (interface{}, error) {
	resp, err := handler(params)
	isError := false
	if err != nil {
		s.logger.Warn("Tool failed",
			"tool", name,
			"code", string(errors.CodeOf(err)),
			"error", err.Error(),
		)
		resp = envelope.Failure(err)
		isError = true
	}

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.NewOperationError("marshal response", err)
	}

	result := map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(jsonBytes),
			},
		},
	}
	if isError {
		result["isError"] = true
	}
	return result, nil
}

// handleListResourcesRequest handles the resources/list request
func (s *MCPServer) handleListResourcesRequest(msg *Message) *Message {
	resources, templates := s.GetResourceDefinitions()
	return resultResponse(msg.ID, map[string]interface{}{
		"resources":         resources,
		"resourceTemplates": templates,
	})
}

// handleReadResourceRequest handles the resources/read request
func (s *MCPServer) handleReadResourceRequest(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return errorResponse(msg.ID, InvalidParams, "Invalid params: expected object")
	}
	uri, ok := params["uri"].(string)
	if !ok || uri == "" {
		return errorResponse(msg.ID, InvalidParams, "Invalid params: missing uri")
	}

	s.logger.Info("Reading resource", "uri", uri)

	result, err := s.handleResourceRead(uri)
	if err != nil {
		code := InternalError
		switch errors.CodeOf(err) {
		case errors.InvalidParameter:
			code = InvalidParams
		case errors.ScopeNotFound, errors.NamespaceNotFound:
			code = ResourceNotFound
		}
		return errorResponse(msg.ID, code, err.Error())
	}

	text, err := json.Marshal(result)
	if err != nil {
		return errorResponse(msg.ID, InternalError, err.Error())
	}
	return resultResponse(msg.ID, map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      uri,
				"mimeType": "application/json",
				"text":     string(text),
			},
		},
	})
}
