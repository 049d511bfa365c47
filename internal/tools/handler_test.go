package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("Expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func callRequest(name string, args any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestCreateResourceHandler(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Verbose = true

	var gotArgs map[string]interface{}
	handler := ResourceHandlerFunc(func(_ context.Context, params map[string]interface{}, _ *config.ConfigData) (string, error) {
		gotArgs = params
		return `[{"a":1}]`, nil
	})

	res, err := CreateResourceHandler(handler, cfg)(context.Background(), callRequest("GetSwConfig", map[string]interface{}{"server_name": "srv01"}))
	if err != nil {
		t.Fatalf("Handler must not return a Go error, got %v", err)
	}
	if res.IsError {
		t.Error("Expected success result")
	}
	if got := resultText(t, res); got != `[{"a":1}]` {
		t.Errorf("Unexpected result text: %s", got)
	}
	if gotArgs["server_name"] != "srv01" {
		t.Errorf("Expected arguments to be passed through, got %v", gotArgs)
	}
}

func TestCreateResourceHandlerErrors(t *testing.T) {
	cfg := config.NewConfig()
	failing := ResourceHandlerFunc(func(context.Context, map[string]interface{}, *config.ConfigData) (string, error) {
		return "", errors.New("boom")
	})

	res, err := CreateResourceHandler(failing, cfg)(context.Background(), callRequest("GetAnomalies", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handler must not return a Go error, got %v", err)
	}
	if !res.IsError || resultText(t, res) != "boom" {
		t.Errorf("Expected tool error result, got %+v", res)
	}

	res, _ = CreateResourceHandler(failing, cfg)(context.Background(), callRequest("GetAnomalies", []string{"x"}))
	if !res.IsError {
		t.Error("Expected error for non-map arguments")
	}
}

func TestCreateResourceHandlerNilArguments(t *testing.T) {
	called := false
	handler := ResourceHandlerFunc(func(_ context.Context, params map[string]interface{}, _ *config.ConfigData) (string, error) {
		called = params != nil
		return "[]", nil
	})

	res, _ := CreateResourceHandler(handler, config.NewConfig())(context.Background(), callRequest("GetServerMetadata", nil))
	if !called || res.IsError {
		t.Error("Expected nil arguments to be treated as an empty map")
	}
}
