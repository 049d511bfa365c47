package tools

import (
	"context"

	"github.com/Azure/ai4ops-mcp/internal/config"
)

// ResourceHandler handles one tool call and returns the text result
type ResourceHandler interface {
	Handle(ctx context.Context, params map[string]interface{}, cfg *config.ConfigData) (string, error)
}

// ResourceHandlerFunc adapts a function to ResourceHandler
type ResourceHandlerFunc func(ctx context.Context, params map[string]interface{}, cfg *config.ConfigData) (string, error)

// Handle implements ResourceHandler
func (f ResourceHandlerFunc) Handle(ctx context.Context, params map[string]interface{}, cfg *config.ConfigData) (string, error) {
	return f(ctx, params, cfg)
}
