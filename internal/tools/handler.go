package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
)

// logToolCall logs the start of a tool call
func logToolCall(toolName string, arguments interface{}) {
	if jsonBytes, err := json.Marshal(arguments); err == nil {
		logger.Debugf(">>> [%s] %s", toolName, string(jsonBytes))
	} else {
		logger.Debugf(">>> [%s] %v", toolName, arguments)
	}
}

// logToolResult logs the result or error of a tool call
func logToolResult(toolName, result string, err error) {
	if err != nil {
		logger.Debugf("    [%s] ERROR: %v", toolName, err)
	} else if len(result) > 500 {
		logger.Debugf("    [%s] Result: %d bytes (truncated): %.500s...", toolName, len(result), result)
	} else {
		logger.Debugf("    [%s] Result: %s", toolName, result)
	}
}

// CreateResourceHandler creates an adapter that converts ResourceHandler to the format expected by MCP server
func CreateResourceHandler(handler ResourceHandler, cfg *config.ConfigData) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if cfg.Verbose {
			logToolCall(req.Params.Name, req.Params.Arguments)
		}

		var args map[string]interface{}
		switch a := req.Params.Arguments.(type) {
		case nil:
			args = map[string]interface{}{}
		case map[string]interface{}:
			args = a
		default:
			return mcp.NewToolResultError("arguments must be a map[string]interface{}, got " + fmt.Sprintf("%T", req.Params.Arguments)), nil
		}

		result, err := handler.Handle(ctx, args, cfg)

		if cfg.Verbose {
			logToolResult(req.Params.Name, result, err)
		}

		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(result), nil
	}
}
